package esg

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// CachedClassifier remembers the classification of every text it has seen,
// so that scoring a growing ledger only classifies its new entries.
type CachedClassifier struct {
	next  Classifier
	cache *ristretto.Cache
}

// NewCachedClassifier wraps a classifier with a cache holding up to size
// classifications.
func NewCachedClassifier(next Classifier, size int64) (*CachedClassifier, error) {

	// Ristretto recommends keeping ten times as many counters as items in
	// the cache when full. Every item costs one.
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        size * 10,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize cache: %w", err)
	}

	c := CachedClassifier{
		next:  next,
		cache: cache,
	}

	return &c, nil
}

func (c *CachedClassifier) Classify(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))

	var misses []string
	pending := make(map[string][]int)
	for i, text := range texts {
		cached, ok := c.cache.Get(text)
		if ok {
			vectors[i] = copyVector(cached.([]float64))
			continue
		}
		if _, ok := pending[text]; !ok {
			misses = append(misses, text)
		}
		pending[text] = append(pending[text], i)
	}

	if len(misses) == 0 {
		return vectors, nil
	}

	classified, err := c.next.Classify(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(classified) != len(misses) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrInvalidClassification, len(classified), len(misses))
	}

	for i, text := range misses {
		vector := classified[i]
		if checkVector(vector) == nil {
			c.cache.Set(text, copyVector(vector), 1)
		}
		for _, j := range pending[text] {
			vectors[j] = copyVector(vector)
		}
	}
	c.cache.Wait()

	return vectors, nil
}

func (c *CachedClassifier) Close() {
	c.cache.Close()
}

func copyVector(vector []float64) []float64 {
	out := make([]float64, len(vector))
	copy(out, vector)
	return out
}
