// Package telegram extracts channel-post metadata for both public
// (t.me/<handle>/<id>) and private (t.me/c/<id>/<id>) posts. There is no
// batch lookup upstream, so each URL costs one entity resolution and one
// message fetch.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"

	"scrape-bot/internal/platform"
	"scrape-bot/internal/session"
)

var (
	rePrivate = regexp.MustCompile(`(?:https?://)?t\.me/c/(\d+)/(\d+)`)
	rePublic  = regexp.MustCompile(`(?:https?://)?t\.me/([\w_]+)/(\d+)`)
)

// channelFallback is the display name used when the entity exposes none.
const channelFallback = "Unknown"

// Extractor implements platform.Extractor for Telegram channel posts. A
// fresh Extractor is built per batch around the connection that batch is
// allowed to use.
type Extractor struct {
	client  session.Client
	private bool
	log     *zap.Logger
	sleep   func(time.Duration)
}

// Option adjusts an Extractor.
type Option func(*Extractor)

// WithSleep overrides the flood-wait pause (tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Extractor) { e.sleep = sleep }
}

// NewPublic creates an extractor for public channel posts using the
// app-level connection.
func NewPublic(client session.Client, log *zap.Logger, opts ...Option) *Extractor {
	return newExtractor(client, false, log, opts...)
}

// NewPrivate creates an extractor for private channel posts using an
// authorized per-user connection.
func NewPrivate(client session.Client, log *zap.Logger, opts ...Option) *Extractor {
	return newExtractor(client, true, log, opts...)
}

func newExtractor(client session.Client, private bool, log *zap.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		client:  client,
		private: private,
		log:     log.Named("telegram"),
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Platform returns the platform this extractor serves.
func (e *Extractor) Platform() platform.Platform {
	if e.private {
		return platform.TelegramPrivate
	}
	return platform.TelegramPublic
}

// Extract fetches each post sequentially, one result per URL in input
// order. A flood-wait signal pauses for the provider-demanded duration and
// retries the same URL once; a second flood-wait converts to a rate-limited
// failure so a pathological provider cannot stall the batch forever.
func (e *Extractor) Extract(ctx context.Context, urls []string) []platform.Result {
	results := make([]platform.Result, 0, len(urls))
	for _, url := range urls {
		res, flood := e.extractOne(ctx, url)
		if flood != nil {
			e.log.Warn("flood wait, pausing batch",
				zap.String("url", url),
				zap.Duration("retry_after", flood.RetryAfter))
			e.sleep(flood.RetryAfter)
			if res, flood = e.extractOne(ctx, url); flood != nil {
				res = platform.Failed(url, platform.FailureRateLimited,
					fmt.Sprintf("Rate limited while fetching %s", url))
			}
		}
		results = append(results, res)
	}
	return results
}

func (e *Extractor) extractOne(ctx context.Context, url string) (platform.Result, *session.FloodWaitError) {
	ident, messageID, err := parsePostURL(url, e.private)
	if err != nil {
		return platform.Failed(url, platform.FailureInternal, err.Error()), nil
	}

	entity, err := e.resolve(ctx, ident)
	if err != nil {
		return e.convert(url, err)
	}

	msg, err := e.client.MessageByID(ctx, entity, messageID)
	if err != nil {
		return e.convert(url, err)
	}

	title := entity.Title
	if title == "" {
		title = channelFallback
	}
	date := ""
	if !msg.Date.IsZero() {
		date = msg.Date.UTC().Format(time.RFC3339)
	}

	rec := platform.NewRecord().
		Set("channel", title).
		Set("post_url", url).
		Set("message_id", strconv.FormatInt(msg.ID, 10)).
		Set("text", msg.Text).
		Set("views", strconv.FormatInt(msg.Views, 10)).
		Set("date", date)
	return platform.Success(rec), nil
}

func (e *Extractor) resolve(ctx context.Context, ident postIdent) (*session.Entity, error) {
	if ident.handle != "" {
		return e.client.EntityByHandle(ctx, ident.handle)
	}
	return e.client.EntityByID(ctx, ident.channelID)
}

// convert maps a provider error to a per-item result, except flood-wait
// which the caller handles by pausing.
func (e *Extractor) convert(url string, err error) (platform.Result, *session.FloodWaitError) {
	var flood *session.FloodWaitError
	if errors.As(err, &flood) {
		return platform.Result{}, flood
	}
	if errors.Is(err, session.ErrChannelPrivate) {
		return platform.Failed(url, platform.FailureAccessDenied,
			fmt.Sprintf("Channel is private or inaccessible: %s", url)), nil
	}
	return platform.Failed(url, platform.FailureInternal,
		fmt.Sprintf("Error processing %s: %v", url, err)), nil
}

type postIdent struct {
	handle    string
	channelID int64
}

// parsePostURL pulls the channel identifier and message id out of a post
// URL. Private channel ids are mapped to the provider's broadcast-channel
// numbering by prefixing -100.
func parsePostURL(url string, private bool) (postIdent, int64, error) {
	if private {
		m := rePrivate.FindStringSubmatch(url)
		if m == nil {
			return postIdent{}, 0, fmt.Errorf("invalid private channel URL: %s", url)
		}
		id, _ := strconv.ParseInt("-100"+m[1], 10, 64)
		msgID, _ := strconv.ParseInt(m[2], 10, 64)
		return postIdent{channelID: id}, msgID, nil
	}
	m := rePublic.FindStringSubmatch(url)
	if m == nil {
		return postIdent{}, 0, fmt.Errorf("invalid channel URL: %s", url)
	}
	msgID, _ := strconv.ParseInt(m[2], 10, 64)
	return postIdent{handle: m[1]}, msgID, nil
}
