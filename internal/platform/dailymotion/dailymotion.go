// Package dailymotion extracts video metadata through the provider's REST
// API, one video lookup plus one owner lookup per URL.
package dailymotion

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"scrape-bot/internal/platform"
	"scrape-bot/internal/timeutil"
)

const defaultBaseURL = "https://api.dailymotion.com"

// Extractor implements platform.Extractor for Dailymotion.
type Extractor struct {
	client  *resty.Client
	baseURL string
	log     *zap.Logger
}

// Option adjusts an Extractor.
type Option func(*Extractor)

// WithBaseURL overrides the API base URL (tests).
func WithBaseURL(url string) Option {
	return func(e *Extractor) { e.baseURL = url }
}

// New creates a Dailymotion extractor.
func New(client *resty.Client, log *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		client:  client,
		baseURL: defaultBaseURL,
		log:     log.Named("dailymotion"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Platform returns the platform this extractor serves.
func (e *Extractor) Platform() platform.Platform {
	return platform.Dailymotion
}

// Extract fetches metadata for each URL sequentially, one result per URL
// in input order. The owner lookup is best-effort: when it fails the
// record keeps empty owner fields instead of failing the item.
func (e *Extractor) Extract(ctx context.Context, urls []string) []platform.Result {
	results := make([]platform.Result, 0, len(urls))
	for _, url := range urls {
		results = append(results, e.extractOne(ctx, url))
	}
	return results
}

func (e *Extractor) extractOne(ctx context.Context, url string) platform.Result {
	videoID := lastPathSegment(url)

	resp, err := e.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,title,description,created_time,duration,views_total,likes_total,owner,tags").
		Get(fmt.Sprintf("%s/video/%s", e.baseURL, videoID))
	if err != nil || resp.StatusCode() != 200 {
		e.log.Warn("video lookup failed", zap.String("url", url), zap.Error(err))
		return platform.Failed(url, platform.FailureRemote, fmt.Sprintf("Failed to fetch data for %s", url))
	}
	video := gjson.ParseBytes(resp.Body())

	ownerID := video.Get("owner").String()
	var owner gjson.Result
	ownerResp, err := e.client.R().
		SetContext(ctx).
		SetQueryParam("fields", "id,username,following_total").
		Get(fmt.Sprintf("%s/user/%s", e.baseURL, ownerID))
	if err == nil && ownerResp.StatusCode() == 200 {
		owner = gjson.ParseBytes(ownerResp.Body())
	}

	tags := make([]string, 0)
	for _, tag := range video.Get("tags").Array() {
		tags = append(tags, tag.String())
	}

	rec := platform.NewRecord().
		Set("id", video.Get("id").String()).
		Set("title", video.Get("title").String()).
		Set("description", video.Get("description").String()).
		Set("created_time", timeutil.UnixToDateDMY(video.Get("created_time").Int())).
		Set("duration", timeutil.FormatDuration(int(video.Get("duration").Int()))).
		Set("views_total", video.Get("views_total").String()).
		Set("likes_total", video.Get("likes_total").String()).
		Set("owner", ownerID).
		Set("tags", strings.Join(tags, ", ")).
		Set("channel_name", owner.Get("username").String()).
		Set("following_total", ownerFollowing(owner))
	return platform.Success(rec)
}

func ownerFollowing(owner gjson.Result) string {
	v := owner.Get("following_total")
	if !v.Exists() {
		return "0"
	}
	return v.String()
}

func lastPathSegment(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
