package esg

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// Classifier returns, for every text, the probabilities of the thirty ESG
// subtopics.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([][]float64, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, texts []string) ([][]float64, error)

func (f ClassifierFunc) Classify(ctx context.Context, texts []string) ([][]float64, error) {
	return f(ctx, texts)
}

// ------------------------------------------------------------
// Remote classifier
// ------------------------------------------------------------

// ClassifyMethod is the JSON-RPC method served by classifier services.
const ClassifyMethod = "classifier_classify"

// RemoteClassifier calls a classifier service over JSON-RPC.
type RemoteClassifier struct {
	client  *rpc.Client
	timeout time.Duration
}

// DialClassifier connects to the classifier service at the given HTTP or
// websocket URL. A zero timeout leaves calls bounded by the caller's context
// only.
func DialClassifier(ctx context.Context, url string, timeout time.Duration) (*RemoteClassifier, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("could not dial classifier: %w", err)
	}
	return NewRemoteClassifier(client, timeout), nil
}

func NewRemoteClassifier(client *rpc.Client, timeout time.Duration) *RemoteClassifier {
	r := RemoteClassifier{
		client:  client,
		timeout: timeout,
	}

	return &r
}

func (r *RemoteClassifier) Classify(ctx context.Context, texts []string) ([][]float64, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var vectors [][]float64
	err := r.client.CallContext(ctx, &vectors, ClassifyMethod, texts)
	if err != nil {
		return nil, fmt.Errorf("could not call %s: %w", ClassifyMethod, err)
	}

	return vectors, nil
}

func (r *RemoteClassifier) Close() {
	r.client.Close()
}
