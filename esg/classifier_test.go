package esg_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siasom1/esg-ledger/esg"
	"github.com/Siasom1/esg-ledger/testing/mocks"
)

// classifierService mimics a remote classifier model.
type classifierService struct {
	mu    sync.Mutex
	calls [][]string
	delay time.Duration
	fail  bool
}

func (s *classifierService) Classify(ctx context.Context, texts []string) ([][]float64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, texts)
	s.mu.Unlock()

	if s.fail {
		return nil, errors.New("model not loaded")
	}
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	out := make([][]float64, 0, len(texts))
	for i := range texts {
		out = append(out, mocks.GenericVector(map[int]float64{i % esg.Subtopics: 0.75}))
	}
	return out, nil
}

func dialService(t *testing.T, service *classifierService, timeout time.Duration) *esg.RemoteClassifier {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("classifier", service))
	t.Cleanup(server.Stop)

	classifier := esg.NewRemoteClassifier(rpc.DialInProc(server), timeout)
	t.Cleanup(classifier.Close)

	return classifier
}

func TestRemoteClassifier(t *testing.T) {
	t.Run("returns the service vectors", func(t *testing.T) {
		service := &classifierService{}
		classifier := dialService(t, service, time.Second)

		vectors, err := classifier.Classify(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Equal(t, 0.75, vectors[1][1])
		assert.Equal(t, [][]string{{"a", "b"}}, service.calls)
	})

	t.Run("reports service errors", func(t *testing.T) {
		classifier := dialService(t, &classifierService{fail: true}, time.Second)

		_, err := classifier.Classify(context.Background(), []string{"a"})
		assert.Error(t, err)
	})

	t.Run("applies the call timeout", func(t *testing.T) {
		classifier := dialService(t, &classifierService{delay: time.Minute}, 20*time.Millisecond)

		_, err := classifier.Classify(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("feeds the aggregator", func(t *testing.T) {
		classifier := dialService(t, &classifierService{}, time.Second)
		aggregator := esg.NewAggregator(mocks.NoopLogger, classifier)

		scores, err := aggregator.Score(context.Background(), genericLedger(t, 2))
		require.NoError(t, err)
		assert.InDelta(t, 0.1, scores.Total[esg.Environmental], delta)
	})
}

func TestCachedClassifier(t *testing.T) {
	var calls [][]string
	next := mocks.BaselineClassifier(t)
	baseline := next.ClassifyFunc
	next.ClassifyFunc = func(ctx context.Context, texts []string) ([][]float64, error) {
		calls = append(calls, texts)
		return baseline(ctx, texts)
	}

	cached, err := esg.NewCachedClassifier(next, 100)
	require.NoError(t, err)
	defer cached.Close()

	vectors, err := cached.Classify(context.Background(), []string{"a", "b", "a"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)

	vectors, err = cached.Classify(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vectors, 3)

	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, calls)

	// Cached vectors are not shared with callers.
	vectors[0][0] = 1
	again, err := cached.Classify(context.Background(), []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, again[0][0])
}

func TestCachedClassifier_Errors(t *testing.T) {
	t.Run("classifier failure is passed through", func(t *testing.T) {
		next := mocks.BaselineClassifier(t)
		next.ClassifyFunc = func(context.Context, []string) ([][]float64, error) {
			return nil, mocks.GenericError
		}
		cached, err := esg.NewCachedClassifier(next, 100)
		require.NoError(t, err)
		defer cached.Close()

		_, err = cached.Classify(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, mocks.GenericError)
	})

	t.Run("wrong vector count", func(t *testing.T) {
		next := mocks.BaselineClassifier(t)
		next.ClassifyFunc = func(context.Context, []string) ([][]float64, error) {
			return nil, nil
		}
		cached, err := esg.NewCachedClassifier(next, 100)
		require.NoError(t, err)
		defer cached.Close()

		_, err = cached.Classify(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, esg.ErrInvalidClassification)
	})

	t.Run("invalid vectors are not cached", func(t *testing.T) {
		calls := 0
		next := mocks.BaselineClassifier(t)
		next.ClassifyFunc = func(_ context.Context, texts []string) ([][]float64, error) {
			calls++
			return [][]float64{{0.5}}, nil
		}
		cached, err := esg.NewCachedClassifier(next, 100)
		require.NoError(t, err)
		defer cached.Close()

		_, err = cached.Classify(context.Background(), []string{"a"})
		require.NoError(t, err)
		_, err = cached.Classify(context.Background(), []string{"a"})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}
