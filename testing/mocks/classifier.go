package mocks

import (
	"context"
	"testing"
)

type Classifier struct {
	ClassifyFunc func(ctx context.Context, texts []string) ([][]float64, error)
}

func BaselineClassifier(t *testing.T) *Classifier {
	t.Helper()

	c := Classifier{
		ClassifyFunc: func(_ context.Context, texts []string) ([][]float64, error) {
			out := make([][]float64, 0, len(texts))
			for range texts {
				out = append(out, make([]float64, 30))
			}
			return out, nil
		},
	}

	return &c
}

func (c *Classifier) Classify(ctx context.Context, texts []string) ([][]float64, error) {
	return c.ClassifyFunc(ctx, texts)
}
