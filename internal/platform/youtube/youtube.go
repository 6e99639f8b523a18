// Package youtube extracts video metadata through the provider's batch
// lookup API.
//
// Two behaviors are intentionally asymmetric with the other extractors and
// are kept for output compatibility: a URL whose video id cannot be parsed
// produces no output item at all, and a failed chunk lookup silently drops
// every id in that chunk.
package youtube

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"scrape-bot/internal/platform"
	"scrape-bot/internal/timeutil"
)

const (
	defaultEndpoint = "https://www.googleapis.com/youtube/v3/videos"
	chunkSize       = 50
)

var videoID = regexp.MustCompile(`(?:v=|/shorts/|/live/|\.be/|/embed/|/watch\?v=|/watch\?.*?v=)([a-zA-Z0-9_-]{11})`)

// KeyRing hands out API keys round-robin. It is safe for concurrent
// batches; the index wraps under the lock.
type KeyRing struct {
	keys []string
	next int
	mu   sync.Mutex
}

// NewKeyRing creates a rotation over the configured keys. The caller
// guarantees the list is non-empty (startup-time configuration check).
func NewKeyRing(keys []string) *KeyRing {
	return &KeyRing{keys: keys}
}

// Next returns the next key in rotation.
func (k *KeyRing) Next() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	key := k.keys[k.next]
	k.next = (k.next + 1) % len(k.keys)
	return key
}

// Extractor implements platform.Extractor for YouTube.
type Extractor struct {
	client   *resty.Client
	ring     *KeyRing
	endpoint string
	log      *zap.Logger
}

// Option adjusts an Extractor.
type Option func(*Extractor)

// WithEndpoint overrides the lookup endpoint (tests).
func WithEndpoint(url string) Option {
	return func(e *Extractor) { e.endpoint = url }
}

// New creates a YouTube extractor using the given key rotation.
func New(client *resty.Client, ring *KeyRing, log *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		client:   client,
		ring:     ring,
		endpoint: defaultEndpoint,
		log:      log.Named("youtube"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Platform returns the platform this extractor serves.
func (e *Extractor) Platform() platform.Platform {
	return platform.YouTube
}

// ExtractVideoID pulls the 11-character video identifier out of a URL.
func ExtractVideoID(url string) (string, bool) {
	m := videoID.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Extract looks up metadata for the given URLs in chunks of up to 50 ids,
// rotating API keys one per chunk request.
func (e *Extractor) Extract(ctx context.Context, urls []string) []platform.Result {
	ids := make([]string, 0, len(urls))
	for _, url := range urls {
		if id, ok := ExtractVideoID(url); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	var results []platform.Result
	for start := 0; start < len(ids); start += chunkSize {
		end := start + chunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		resp, err := e.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"part": "snippet,statistics,contentDetails",
				"id":   strings.Join(chunk, ","),
				"key":  e.ring.Next(),
			}).
			Get(e.endpoint)
		if err != nil || resp.StatusCode() != 200 {
			e.log.Warn("chunk lookup failed, skipping",
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			continue
		}

		for _, item := range gjson.GetBytes(resp.Body(), "items").Array() {
			results = append(results, platform.Success(buildRecord(item)))
		}
	}
	return results
}

func buildRecord(item gjson.Result) *platform.Record {
	snippet := item.Get("snippet")
	stats := item.Get("statistics")

	duration := item.Get("contentDetails.duration").String()
	if duration == "" {
		duration = "PT0S"
	}

	return platform.NewRecord().
		Set("title", snippet.Get("title").String()).
		Set("videoId", item.Get("id").String()).
		Set("views", orZero(stats.Get("viewCount"))).
		Set("duration", timeutil.FormatDuration(timeutil.ParseISODuration(duration))).
		Set("channelId", snippet.Get("channelId").String()).
		Set("channelTitle", snippet.Get("channelTitle").String()).
		Set("publishDate", timeutil.DatePart(snippet.Get("publishedAt").String())).
		Set("likes", orZero(stats.Get("likeCount"))).
		Set("comments", orZero(stats.Get("commentCount"))).
		Set("thumbnail", snippet.Get("thumbnails.high.url").String())
}

func orZero(v gjson.Result) string {
	if !v.Exists() {
		return "0"
	}
	return v.String()
}
