package esg

import (
	"time"
)

// Metrics records classifier usage.
type Metrics interface {
	Classified(texts int, duration time.Duration)
}

// Config configures an Aggregator.
type Config struct {
	Metrics Metrics
}

func DefaultConfig() Config {
	return Config{
		Metrics: nil,
	}
}

func WithMetrics(metrics Metrics) func(*Config) {
	return func(cfg *Config) {
		cfg.Metrics = metrics
	}
}
