// Package scraper is the batch aggregator: it partitions a submitted URL
// block into valid and invalid lines, dispatches the valid set to the
// selected platform's extractor, and merges the results in input order.
package scraper

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"scrape-bot/internal/platform"
	"scrape-bot/internal/session"
)

// Batch outcomes that never reach an extractor. ErrNoValidURLs is distinct
// from an all-failed batch; see BatchResult.HasData.
var (
	ErrNoValidURLs   = errors.New("no valid URLs provided")
	ErrLoginRequired = errors.New("login required for private channels")
	ErrSessionBusy   = errors.New("another batch is already using this session")
	ErrNoExtractor   = errors.New("no extractor registered for platform")
)

// BatchResult is the aggregated outcome of one submitted URL block.
type BatchResult struct {
	ID           string
	Platform     platform.Platform
	ValidURLs    []string
	InvalidLines []string
	Results      []platform.Result
}

// HasData reports whether at least one item produced a record. A false
// value with a non-empty valid set is the "no data scraped" outcome.
func (b *BatchResult) HasData() bool {
	for _, r := range b.Results {
		if r.OK() {
			return true
		}
	}
	return false
}

// PrivateFactory builds the private-channel extractor around the
// connection one batch is allowed to borrow.
type PrivateFactory func(client session.Client) platform.Extractor

// Aggregator dispatches batches to platform extractors.
type Aggregator struct {
	registry   *platform.Registry
	sessions   *session.Manager
	newPrivate PrivateFactory
	log        *zap.Logger
}

// New creates an aggregator over the given extractor registry and session
// manager.
func New(registry *platform.Registry, sessions *session.Manager, newPrivate PrivateFactory, log *zap.Logger) *Aggregator {
	return &Aggregator{
		registry:   registry,
		sessions:   sessions,
		newPrivate: newPrivate,
		log:        log.Named("scraper"),
	}
}

// ProcessBatch classifies every line of the submitted block against the
// selected platform and runs the platform's extractor exactly once over
// the valid subset. Invalid lines are reported verbatim in input order.
// With zero valid lines it returns ErrNoValidURLs along with the partial
// result, without invoking any extractor.
func (a *Aggregator) ProcessBatch(ctx context.Context, userID int64, p platform.Platform, rawText string) (*BatchResult, error) {
	batch := &BatchResult{
		ID:       uuid.NewString(),
		Platform: p,
	}
	log := a.log.With(zap.String("batch_id", batch.ID), zap.String("platform", string(p)))

	for _, line := range strings.Split(strings.TrimSpace(rawText), "\n") {
		if valid, normalized := platform.Classify(p, line); valid {
			batch.ValidURLs = append(batch.ValidURLs, normalized)
		} else {
			batch.InvalidLines = append(batch.InvalidLines, line)
		}
	}

	if len(batch.ValidURLs) == 0 {
		log.Info("nothing to process", zap.Int("invalid", len(batch.InvalidLines)))
		return batch, ErrNoValidURLs
	}

	extractor, release, err := a.extractorFor(userID, p)
	if err != nil {
		return batch, err
	}
	if release != nil {
		defer release()
	}

	log.Info("processing batch",
		zap.Int("valid", len(batch.ValidURLs)),
		zap.Int("invalid", len(batch.InvalidLines)))

	batch.Results = extractor.Extract(ctx, batch.ValidURLs)

	log.Info("batch done",
		zap.Int("results", len(batch.Results)),
		zap.Bool("has_data", batch.HasData()))
	return batch, nil
}

// extractorFor resolves the extractor for a platform. The private-channel
// path requires an authorized session, which is held for the duration of
// the batch so overlapping requests from the same user are rejected.
func (a *Aggregator) extractorFor(userID int64, p platform.Platform) (platform.Extractor, func(), error) {
	if !p.RequiresLogin() {
		extractor := a.registry.Extractor(p)
		if extractor == nil {
			return nil, nil, ErrNoExtractor
		}
		return extractor, nil, nil
	}

	if !a.sessions.IsAuthorized(userID) {
		return nil, nil, ErrLoginRequired
	}
	sess := a.sessions.Session(userID)
	if !sess.TryAcquire() {
		return nil, nil, ErrSessionBusy
	}
	return a.newPrivate(sess.Client()), sess.Release, nil
}
