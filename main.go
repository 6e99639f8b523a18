package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"scrape-bot/cmd"
	"scrape-bot/internal/config"
	"scrape-bot/internal/platform"
	"scrape-bot/internal/platform/dailymotion"
	"scrape-bot/internal/platform/okru"
	"scrape-bot/internal/platform/telegram"
	"scrape-bot/internal/platform/youtube"
	"scrape-bot/internal/scraper"
	"scrape-bot/internal/server"
	"scrape-bot/internal/session"
)

func main() {
	opts, err := cmd.ParseArgs()
	if err != nil {
		fmt.Println("[ERROR]", err)
		cmd.PrintUsageAndExit()
	}

	// Configuration problems are fatal before serving anything.
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		fmt.Println("[ERROR] configuration:", err)
		os.Exit(1)
	}
	if opts.Addr != "" {
		cfg.ListenAddr = opts.Addr
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Println("[ERROR] logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	httpClient := resty.New().SetTimeout(cfg.HTTPTimeout)

	// Extractor registry: one extractor per platform, mapping is static.
	registry := platform.NewRegistry()
	registry.Register(youtube.New(httpClient, youtube.NewKeyRing(cfg.YouTubeAPIKeys), logger))
	registry.Register(dailymotion.New(httpClient, logger))
	registry.Register(okru.New(httpClient, logger))

	sessions := session.NewManager(providerDialer(cfg), logger)

	// Channel-post extraction runs over the provider's own protocol; the
	// app-level connection serves public posts, per-user sessions serve
	// private ones.
	if appClient, err := providerDialer(cfg)(context.Background(), 0); err == nil {
		registry.Register(telegram.NewPublic(appClient, logger))
	} else {
		logger.Warn("provider client unavailable, public channel posts disabled", zap.Error(err))
	}

	newPrivate := func(client session.Client) platform.Extractor {
		return telegram.NewPrivate(client, logger)
	}
	aggregator := scraper.New(registry, sessions, newPrivate, logger)

	api := server.NewAPI(aggregator, sessions, logger)
	router := server.SetupRouter(api)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// newLogger builds the service logger at the configured level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// providerDialer opens connections to the channel-post provider. The
// MTProto transport itself is an external collaborator; the embedding bot
// process supplies the concrete client for its deployment.
func providerDialer(cfg *config.Config) session.Dialer {
	return func(ctx context.Context, userID int64) (session.Client, error) {
		if cfg.TelegramAPIID == 0 || cfg.TelegramAPIHash == "" {
			return nil, errors.New("TELEGRAM_API_ID and TELEGRAM_API_HASH are not set")
		}
		return nil, errors.New("no provider client linked into this build")
	}
}
