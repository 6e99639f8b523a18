// Package okru extracts video metadata by scraping the raw video page;
// the provider has no structured API. Fields missing from the markup are
// filled with the "N/A" marker instead of being dropped, so every record
// of a batch carries the same header.
package okru

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"scrape-bot/internal/platform"
	"scrape-bot/internal/timeutil"
)

// NotAvailable marks a field the markup did not contain.
const NotAvailable = "N/A"

var (
	reDuration    = regexp.MustCompile(`class="vid-card_duration">([\d:]+)</div>`)
	reViews       = regexp.MustCompile(`<div class="vp-layer-info_i"><span>([^<]+)</span>`)
	reChannelPath = regexp.MustCompile(`/(group|profile)/([\w\d]+)`)
	reChannelName = regexp.MustCompile(`name="([^"]+)" id="\d+"`)
	reSubscribers = regexp.MustCompile(`subscriberscount="(\d+)"`)
	reAltDate     = regexp.MustCompile(`"datePublished":"([^"]+)"`)
)

// Extractor implements platform.Extractor for Ok.ru.
type Extractor struct {
	client *resty.Client
	log    *zap.Logger
}

// New creates an Ok.ru extractor.
func New(client *resty.Client, log *zap.Logger) *Extractor {
	return &Extractor{client: client, log: log.Named("okru")}
}

// Platform returns the platform this extractor serves.
func (e *Extractor) Platform() platform.Platform {
	return platform.Okru
}

// Extract scrapes each URL sequentially, one result per URL in input
// order. A failure on one URL never aborts the remaining ones.
func (e *Extractor) Extract(ctx context.Context, urls []string) []platform.Result {
	results := make([]platform.Result, 0, len(urls))
	for _, url := range urls {
		results = append(results, e.extractOne(ctx, url))
	}
	return results
}

func (e *Extractor) extractOne(ctx context.Context, url string) (res platform.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = platform.Failed(url, platform.FailureInternal, fmt.Sprintf("Error processing %s: %v", url, r))
		}
	}()

	resp, err := e.client.R().SetContext(ctx).Get(withScheme(url))
	if err != nil {
		return platform.Failed(url, platform.FailureRemote, fmt.Sprintf("Error processing %s: %v", url, err))
	}
	if resp.StatusCode() != 200 {
		return platform.Failed(url, platform.FailureRemote, fmt.Sprintf("Failed to fetch %s", url))
	}
	html := resp.Body()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return platform.Failed(url, platform.FailureInternal, fmt.Sprintf("Error processing %s: %v", url, err))
	}

	rec := platform.NewRecord().
		Set("title", metaContent(doc, `meta[property="og:title"]`)).
		Set("duration", duration(html)).
		Set("views", firstMatch(reViews, html)).
		Set("channel_url", channelURL(html)).
		Set("channel_name", firstMatch(reChannelName, html)).
		Set("subscribers", firstMatch(reSubscribers, html)).
		Set("upload_date", uploadDate(doc, html))
	return platform.Success(rec)
}

// metaContent reads the content attribute of the first matching meta tag,
// or NotAvailable.
func metaContent(doc *goquery.Document, selector string) string {
	if content, ok := doc.Find(selector).Attr("content"); ok && content != "" {
		return content
	}
	return NotAvailable
}

func firstMatch(re *regexp.Regexp, html []byte) string {
	if m := re.FindSubmatch(html); m != nil {
		return string(m[1])
	}
	return NotAvailable
}

func duration(html []byte) string {
	clock := firstMatch(reDuration, html)
	if clock == NotAvailable {
		return NotAvailable
	}
	seconds, err := timeutil.ParseClock(clock)
	if err != nil {
		return NotAvailable
	}
	return timeutil.FormatDuration(seconds)
}

func channelURL(html []byte) string {
	if m := reChannelPath.FindSubmatch(html); m != nil {
		return fmt.Sprintf("https://ok.ru/%s/%s", m[1], m[2])
	}
	return NotAvailable
}

// uploadDate prefers the video:release_date meta tag and falls back to the
// datePublished field embedded in page JSON.
func uploadDate(doc *goquery.Document, html []byte) string {
	date := metaContent(doc, `meta[property="video:release_date"]`)
	if date == NotAvailable {
		date = firstMatch(reAltDate, html)
	}
	if date == NotAvailable {
		return NotAvailable
	}
	return timeutil.ISOToDateDMY(date)
}

func withScheme(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}
