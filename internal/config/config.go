// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full service configuration.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// YouTubeAPIKeys is the ordered, comma-separated credential list the
	// video lookup rotates over. At least one key is required.
	YouTubeAPIKeys []string `envconfig:"YOUTUBE_API_KEYS"`

	// Provider application credentials for the channel-post client.
	TelegramAPIID   int    `envconfig:"TELEGRAM_API_ID"`
	TelegramAPIHash string `envconfig:"TELEGRAM_API_HASH"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
}

// Load reads an optional .env file, then the environment, and validates
// the result. Validation failures are startup-time fatal for the caller;
// the service must not serve requests without its credentials.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Missing file is fine, the environment may be set directly.
		_ = godotenv.Load(envFile)
	} else {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.YouTubeAPIKeys) == 0 {
		return errors.New("YOUTUBE_API_KEYS must contain at least one key")
	}
	return nil
}
