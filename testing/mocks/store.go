package mocks

import (
	"testing"
)

type StoreMetrics struct {
	FlushFailedFunc func()
}

func BaselineStoreMetrics(t *testing.T) *StoreMetrics {
	t.Helper()

	m := StoreMetrics{
		FlushFailedFunc: func() {},
	}

	return &m
}

func (m *StoreMetrics) FlushFailed() {
	m.FlushFailedFunc()
}
