package blockchain

import (
	"time"

	"github.com/Siasom1/esg-ledger/params"
)

// Config defines how a ledger stamps its blocks.
type Config struct {
	Clock           func() time.Time
	TimestampLayout string
}

func DefaultConfig() Config {
	return Config{
		Clock:           time.Now,
		TimestampLayout: params.TimestampLayout,
	}
}

// WithClock replaces the wall clock used for block timestamps.
func WithClock(clock func() time.Time) func(*Config) {
	return func(cfg *Config) {
		cfg.Clock = clock
	}
}
