package mocks

import (
	"testing"
	"time"
)

type ClassifierMetrics struct {
	ClassifiedFunc func(texts int, duration time.Duration)
}

func BaselineClassifierMetrics(t *testing.T) *ClassifierMetrics {
	t.Helper()

	m := ClassifierMetrics{
		ClassifiedFunc: func(int, time.Duration) {},
	}

	return &m
}

func (m *ClassifierMetrics) Classified(texts int, duration time.Duration) {
	m.ClassifiedFunc(texts, duration)
}
