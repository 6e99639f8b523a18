package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scrape-bot/internal/platform"
	"scrape-bot/internal/session"
)

// stubExtractor records what it was asked to extract and answers from a
// script.
type stubExtractor struct {
	platform platform.Platform
	calls    int
	gotURLs  []string
	results  []platform.Result
}

func (s *stubExtractor) Platform() platform.Platform { return s.platform }

func (s *stubExtractor) Extract(ctx context.Context, urls []string) []platform.Result {
	s.calls++
	s.gotURLs = append([]string(nil), urls...)
	if s.results != nil {
		return s.results
	}
	out := make([]platform.Result, len(urls))
	for i, url := range urls {
		out[i] = platform.Success(platform.NewRecord().Set("url", url))
	}
	return out
}

// stubClient satisfies session.Client for authorized-session tests.
type stubClient struct{}

func (stubClient) SendCode(context.Context, string) error          { return nil }
func (stubClient) SignIn(context.Context, string, string) error    { return nil }
func (stubClient) SignInPassword(context.Context, string) error    { return nil }
func (stubClient) IsAuthorized() bool                              { return true }
func (stubClient) EntityByHandle(context.Context, string) (*session.Entity, error) {
	return nil, errors.New("not implemented")
}
func (stubClient) EntityByID(context.Context, int64) (*session.Entity, error) {
	return nil, errors.New("not implemented")
}
func (stubClient) MessageByID(context.Context, *session.Entity, int64) (*session.Message, error) {
	return nil, errors.New("not implemented")
}
func (stubClient) Close() error { return nil }

func authorizedManager(t *testing.T, userID int64) *session.Manager {
	t.Helper()
	dial := func(ctx context.Context, uid int64) (session.Client, error) {
		return stubClient{}, nil
	}
	m := session.NewManager(dial, zap.NewNop())
	require.NoError(t, m.SubmitPhone(context.Background(), userID, "+1"))
	_, err := m.SubmitCode(context.Background(), userID, "12345")
	require.NoError(t, err)
	return m
}

func newAggregator(ext *stubExtractor, sessions *session.Manager, priv *stubExtractor) *Aggregator {
	registry := platform.NewRegistry()
	if ext != nil {
		registry.Register(ext)
	}
	if sessions == nil {
		sessions = session.NewManager(func(ctx context.Context, uid int64) (session.Client, error) {
			return nil, errors.New("no dialer")
		}, zap.NewNop())
	}
	factory := func(client session.Client) platform.Extractor { return priv }
	return New(registry, sessions, factory, zap.NewNop())
}

func TestProcessBatchPartitionsLines(t *testing.T) {
	ext := &stubExtractor{platform: platform.Okru}
	agg := newAggregator(ext, nil, nil)

	input := "https://ok.ru/video/1\nnot a url\n  ok.ru/video/2  \nhttps://youtu.be/dQw4w9WgXcQ\n"
	batch, err := agg.ProcessBatch(context.Background(), 1, platform.Okru, input)
	require.NoError(t, err)

	assert.Equal(t, 1, ext.calls)
	assert.Equal(t, []string{"https://ok.ru/video/1", "ok.ru/video/2"}, ext.gotURLs)
	assert.Equal(t, []string{"not a url", "https://youtu.be/dQw4w9WgXcQ"}, batch.InvalidLines)
	assert.Len(t, batch.Results, 2)
	assert.True(t, batch.HasData())
	assert.NotEmpty(t, batch.ID)
}

func TestProcessBatchNoValidLines(t *testing.T) {
	ext := &stubExtractor{platform: platform.Okru}
	agg := newAggregator(ext, nil, nil)

	batch, err := agg.ProcessBatch(context.Background(), 1, platform.Okru, "garbage\nmore garbage")
	assert.ErrorIs(t, err, ErrNoValidURLs)
	assert.Zero(t, ext.calls)
	assert.Empty(t, batch.ValidURLs)
	assert.Equal(t, []string{"garbage", "more garbage"}, batch.InvalidLines)
}

func TestProcessBatchAllFailedIsDistinctFromNoValid(t *testing.T) {
	url := "https://ok.ru/video/1"
	ext := &stubExtractor{
		platform: platform.Okru,
		results:  []platform.Result{platform.Failed(url, platform.FailureRemote, "Failed to fetch "+url)},
	}
	agg := newAggregator(ext, nil, nil)

	batch, err := agg.ProcessBatch(context.Background(), 1, platform.Okru, url)
	require.NoError(t, err)

	// All items failed: not an error, but no usable data either.
	assert.False(t, batch.HasData())
	assert.Len(t, batch.Results, 1)
}

func TestProcessBatchUnregisteredPlatform(t *testing.T) {
	agg := newAggregator(nil, nil, nil)

	_, err := agg.ProcessBatch(context.Background(), 1, platform.Okru, "https://ok.ru/video/1")
	assert.ErrorIs(t, err, ErrNoExtractor)
}

func TestProcessBatchPrivateRequiresLogin(t *testing.T) {
	priv := &stubExtractor{platform: platform.TelegramPrivate}
	agg := newAggregator(nil, nil, priv)

	_, err := agg.ProcessBatch(context.Background(), 1, platform.TelegramPrivate, "https://t.me/c/123/1")
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Zero(t, priv.calls)
}

func TestProcessBatchPrivateWithSession(t *testing.T) {
	sessions := authorizedManager(t, 7)
	priv := &stubExtractor{platform: platform.TelegramPrivate}
	agg := newAggregator(nil, sessions, priv)

	batch, err := agg.ProcessBatch(context.Background(), 7, platform.TelegramPrivate, "https://t.me/c/123/1")
	require.NoError(t, err)
	assert.Equal(t, 1, priv.calls)
	assert.True(t, batch.HasData())

	// The session was released after the batch.
	assert.True(t, sessions.Session(7).TryAcquire())
	sessions.Session(7).Release()
}

func TestProcessBatchPrivateSessionBusy(t *testing.T) {
	sessions := authorizedManager(t, 7)
	require.True(t, sessions.Session(7).TryAcquire())

	priv := &stubExtractor{platform: platform.TelegramPrivate}
	agg := newAggregator(nil, sessions, priv)

	_, err := agg.ProcessBatch(context.Background(), 7, platform.TelegramPrivate, "https://t.me/c/123/1")
	assert.ErrorIs(t, err, ErrSessionBusy)
	assert.Zero(t, priv.calls)
}

func TestProcessBatchPrivateChecksClassificationFirst(t *testing.T) {
	// Invalid-only input short-circuits before the authorization check.
	priv := &stubExtractor{platform: platform.TelegramPrivate}
	agg := newAggregator(nil, nil, priv)

	_, err := agg.ProcessBatch(context.Background(), 1, platform.TelegramPrivate, "https://t.me/public_channel/5")
	assert.ErrorIs(t, err, ErrNoValidURLs)
}

func TestProcessBatchOrderPreserved(t *testing.T) {
	ext := &stubExtractor{platform: platform.Dailymotion}
	agg := newAggregator(ext, nil, nil)

	input := "https://www.dailymotion.com/video/a1\nhttps://www.dailymotion.com/video/b2\nhttps://www.dailymotion.com/video/c3"
	batch, err := agg.ProcessBatch(context.Background(), 1, platform.Dailymotion, input)
	require.NoError(t, err)

	require.Len(t, batch.Results, 3)
	for i, url := range batch.ValidURLs {
		assert.Equal(t, url, batch.Results[i].Record.Get("url"))
	}
}
