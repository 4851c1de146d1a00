// Package config loads botsight settings from an optional config file and
// BOTSIGHT_-prefixed environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/crimson-sun/botsight/internal/engine/taxonomy"
	"github.com/crimson-sun/botsight/internal/instrumentation"
	"github.com/crimson-sun/botsight/internal/logging"
	"github.com/crimson-sun/botsight/internal/sentiment"
	"github.com/crimson-sun/botsight/internal/transport/httpclient"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "BOTSIGHT"

// DefaultEnvFile is read when no config file is given and it exists.
const DefaultEnvFile = ".env"

// Config holds all botsight configuration.
type Config struct {
	// Destinations are routing keys, e.g. an Application Insights
	// instrumentation key or "kafka:broker:9092/topic".
	Destinations []string `mapstructure:"DESTINATIONS"`
	// SentimentAPIKey enables sentiment enrichment when non-empty.
	SentimentAPIKey string `mapstructure:"TEXT_ANALYTICS_API_KEY"`
	// SentimentMinLength is kept as text; the enricher falls back to 0 when
	// it does not parse.
	SentimentMinLength string        `mapstructure:"TEXT_ANALYTICS_MIN_LENGTH"`
	SentimentEndpoint  string        `mapstructure:"COGNITIVE_SERVICE_ENDPOINT"`
	SentimentTimeout   time.Duration `mapstructure:"SENTIMENT_TIMEOUT"`
	AsyncSentiment     bool          `mapstructure:"ASYNC_SENTIMENT"`
	OmitUsername       bool          `mapstructure:"OMIT_USERNAME"`
	EventNaming        string        `mapstructure:"EVENT_NAMING"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// ListenAddr is where "botsight serve" accepts activities and exposes
	// /metrics and /healthz.
	ListenAddr string `mapstructure:"LISTEN_ADDR"`
	// OTLPEndpoint is the collector gRPC address; empty leaves OTel no-op.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTLP_INSECURE"`
	ServiceName  string `mapstructure:"SERVICE_NAME"`
	Workers      int    `mapstructure:"WORKERS"`
}

// Load reads path (or .env when path is empty and the file exists), then
// applies BOTSIGHT_ environment overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("DESTINATIONS", "")
	v.SetDefault("TEXT_ANALYTICS_API_KEY", "")
	v.SetDefault("TEXT_ANALYTICS_MIN_LENGTH", "0")
	v.SetDefault("COGNITIVE_SERVICE_ENDPOINT", sentiment.DefaultEndpoint)
	v.SetDefault("SENTIMENT_TIMEOUT", instrumentation.DefaultSentimentTimeout.String())
	v.SetDefault("ASYNC_SENTIMENT", false)
	v.SetDefault("OMIT_USERNAME", false)
	v.SetDefault("EVENT_NAMING", "mbf")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", logging.FormatAuto)
	v.SetDefault("LISTEN_ADDR", ":3978")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("SERVICE_NAME", "botsight")
	v.SetDefault("WORKERS", 4)

	switch {
	case path != "":
		v.SetConfigFile(path)
		if strings.HasSuffix(path, ".env") {
			v.SetConfigType("env")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	default:
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			v.SetConfigFile(DefaultEnvFile)
			v.SetConfigType("env")
			_ = v.ReadInConfig()
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Destinations = splitList(cfg.Destinations)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants Load enforces.
func (c *Config) Validate() error {
	if len(c.Destinations) == 0 {
		return errors.New("config: DESTINATIONS must list at least one routing key")
	}
	if _, err := taxonomy.ByName(c.EventNaming); err != nil {
		return fmt.Errorf("config: EVENT_NAMING: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", logging.FormatAuto, logging.FormatJSON, logging.FormatText:
	default:
		return fmt.Errorf("config: LOG_FORMAT must be json, text or auto, got %q", c.LogFormat)
	}
	if c.SentimentTimeout <= 0 {
		return errors.New("config: SENTIMENT_TIMEOUT must be positive")
	}
	if c.Workers < 1 {
		return errors.New("config: WORKERS must be at least 1")
	}
	return nil
}

// Settings converts the config into instrumentation settings.
func (c *Config) Settings() (*instrumentation.Settings, error) {
	tax, err := taxonomy.ByName(c.EventNaming)
	if err != nil {
		return nil, err
	}
	transport := httpclient.New(httpclient.WithTimeout(c.SentimentTimeout))
	return &instrumentation.Settings{
		Destinations:     append([]string(nil), c.Destinations...),
		Sentiment:        sentiment.NewManager(c.SentimentAPIKey, c.SentimentMinLength, c.SentimentEndpoint, transport),
		OmitUsername:     c.OmitUsername,
		Taxonomy:         tax,
		AsyncSentiment:   c.AsyncSentiment,
		SentimentTimeout: c.SentimentTimeout,
	}, nil
}

// splitList trims entries and drops empty ones. A single entry holding
// commas is split, so YAML lists and comma-separated env values both work.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
