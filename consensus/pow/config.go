package pow

import "time"

// Metrics receives mining statistics.
type Metrics interface {
	BlockSealed(attempts uint64, duration time.Duration)
	MiningCancelled()
}

// DefaultConfig is the default configuration for the miner.
var DefaultConfig = Config{
	PollInterval: 1024,
	Metrics:      nil,
}

// Config contains optional parameters for the miner.
type Config struct {
	PollInterval uint64
	Metrics      Metrics
}

// WithPollInterval sets how many hash attempts pass between two checks of
// the context.
func WithPollInterval(n uint64) func(*Config) {
	return func(cfg *Config) {
		if n > 0 {
			cfg.PollInterval = n
		}
	}
}

// WithMetrics sets the collector that records sealed and cancelled blocks.
func WithMetrics(m Metrics) func(*Config) {
	return func(cfg *Config) {
		cfg.Metrics = m
	}
}
