package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "esg_ledger"

// Collector records ledger activity as prometheus metrics. It serves as the
// metrics hook of the miner, the store and the score aggregator.
type Collector struct {
	sealed      prometheus.Counter
	attempts    prometheus.Counter
	sealTime    prometheus.Histogram
	cancelled   prometheus.Counter
	flushFailed prometheus.Counter
	classified  prometheus.Counter
	classifyDur prometheus.Histogram
}

// NewCollector creates the collectors and registers them with reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	sealedOpts := prometheus.CounterOpts{
		Name:      "blocks_sealed_total",
		Namespace: namespace,
		Help:      "number of blocks sealed by the miner",
	}
	attemptsOpts := prometheus.CounterOpts{
		Name:      "hash_attempts_total",
		Namespace: namespace,
		Help:      "number of hashes computed while mining",
	}
	sealTimeOpts := prometheus.HistogramOpts{
		Name:      "seal_duration_seconds",
		Namespace: namespace,
		Help:      "time spent mining a single block",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}
	cancelledOpts := prometheus.CounterOpts{
		Name:      "mining_cancelled_total",
		Namespace: namespace,
		Help:      "number of mining runs stopped before finding a nonce",
	}
	flushFailedOpts := prometheus.CounterOpts{
		Name:      "store_flush_failures_total",
		Namespace: namespace,
		Help:      "number of failed ledger store writes",
	}
	classifiedOpts := prometheus.CounterOpts{
		Name:      "classified_texts_total",
		Namespace: namespace,
		Help:      "number of course texts sent to the classifier",
	}
	classifyDurOpts := prometheus.HistogramOpts{
		Name:      "classify_duration_seconds",
		Namespace: namespace,
		Help:      "time spent waiting for the classifier",
		Buckets:   prometheus.DefBuckets,
	}

	c := Collector{
		sealed:      prometheus.NewCounter(sealedOpts),
		attempts:    prometheus.NewCounter(attemptsOpts),
		sealTime:    prometheus.NewHistogram(sealTimeOpts),
		cancelled:   prometheus.NewCounter(cancelledOpts),
		flushFailed: prometheus.NewCounter(flushFailedOpts),
		classified:  prometheus.NewCounter(classifiedOpts),
		classifyDur: prometheus.NewHistogram(classifyDurOpts),
	}

	collectors := []prometheus.Collector{
		c.sealed,
		c.attempts,
		c.sealTime,
		c.cancelled,
		c.flushFailed,
		c.classified,
		c.classifyDur,
	}
	for _, collector := range collectors {
		err := reg.Register(collector)
		if err != nil {
			return nil, err
		}
	}

	return &c, nil
}

func (c *Collector) BlockSealed(attempts uint64, duration time.Duration) {
	c.sealed.Inc()
	c.attempts.Add(float64(attempts))
	c.sealTime.Observe(duration.Seconds())
}

func (c *Collector) MiningCancelled() {
	c.cancelled.Inc()
}

func (c *Collector) FlushFailed() {
	c.flushFailed.Inc()
}

func (c *Collector) Classified(texts int, duration time.Duration) {
	c.classified.Add(float64(texts))
	c.classifyDur.Observe(duration.Seconds())
}
