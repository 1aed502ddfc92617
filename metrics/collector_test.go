package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siasom1/esg-ledger/metrics"
	"github.com/Siasom1/esg-ledger/testing/mocks"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	collector.BlockSealed(120, 5*time.Millisecond)
	collector.BlockSealed(30, time.Millisecond)
	collector.MiningCancelled()
	collector.FlushFailed()
	collector.Classified(4, time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, family := range families {
		metric := family.GetMetric()[0]
		switch {
		case metric.GetCounter() != nil:
			values[family.GetName()] = metric.GetCounter().GetValue()
		case metric.GetHistogram() != nil:
			values[family.GetName()] = float64(metric.GetHistogram().GetSampleCount())
		}
	}

	assert.Equal(t, map[string]float64{
		"esg_ledger_blocks_sealed_total":        2,
		"esg_ledger_hash_attempts_total":        150,
		"esg_ledger_seal_duration_seconds":      2,
		"esg_ledger_mining_cancelled_total":     1,
		"esg_ledger_store_flush_failures_total": 1,
		"esg_ledger_classified_texts_total":     4,
		"esg_ledger_classify_duration_seconds":  1,
	}, values)
}

func TestCollector_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.NewCollector(reg)
	require.NoError(t, err)

	_, err = metrics.NewCollector(reg)
	assert.Error(t, err)
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	require.NoError(t, err)
	collector.FlushFailed()

	server := metrics.NewServer(mocks.NoopLogger, "127.0.0.1:0", reg)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "esg_ledger_store_flush_failures_total 1")
}
