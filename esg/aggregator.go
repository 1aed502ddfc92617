package esg

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/Siasom1/esg-ledger/core/types"
)

// Chain is the read side of a ledger needed for scoring.
type Chain interface {
	Blocks() []types.Block
}

// Aggregator turns classifier outputs for the courses of a ledger into
// bounded ESG scores.
type Aggregator struct {
	log        zerolog.Logger
	cfg        Config
	classifier Classifier
}

func NewAggregator(log zerolog.Logger, classifier Classifier, options ...func(*Config)) *Aggregator {
	cfg := DefaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	a := Aggregator{
		log:        log.With().Str("component", "aggregator").Logger(),
		cfg:        cfg,
		classifier: classifier,
	}

	return &a
}

// Score classifies every course after genesis and aggregates the results.
// Blocks without a course are not scored. When there is nothing to score the
// classifier is not called and the result is a single zero total.
func (a *Aggregator) Score(ctx context.Context, chain Chain) (*Scores, error) {
	blocks := chain.Blocks()

	var (
		texts   []string
		indices []uint64
	)
	for i := 1; i < len(blocks); i++ {
		course := blocks[i].Data.Course
		if course == nil {
			continue
		}
		texts = append(texts, course.Text())
		indices = append(indices, blocks[i].Index)
	}

	scores := Scores{
		Entries: make([]EntryScore, 0, len(texts)),
	}
	if len(texts) == 0 {
		return &scores, nil
	}

	start := time.Now()
	vectors, err := a.classifier.Classify(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.Classified(len(texts), time.Since(start))
	}

	err = checkVectors(vectors, len(texts))
	if err != nil {
		return nil, err
	}

	var sums Score
	for i, vector := range vectors {
		var entry Score
		for topic := range entry {
			for sub := 0; sub < TopicSubtopics; sub++ {
				entry[topic] += contribution(vector[topic*TopicSubtopics+sub])
			}
			sums[topic] += entry[topic]
			entry[topic] = math.Min(entry[topic], MaxScore)
		}
		scores.Entries = append(scores.Entries, EntryScore{BlockIndex: indices[i], Score: entry})
	}
	for topic := range sums {
		scores.Total[topic] = math.Min(sums[topic], MaxScore)
	}

	a.log.Debug().
		Int("entries", len(scores.Entries)).
		Floats64("total", scores.Total[:]).
		Msg("ledger scored")

	return &scores, nil
}

// contribution rescales a probability above the threshold to [0, Weight].
func contribution(p float64) float64 {
	if p < Threshold {
		return 0
	}
	return (p - Threshold) / (1 - Threshold) * Weight
}

func checkVectors(vectors [][]float64, texts int) error {
	if len(vectors) != texts {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrInvalidClassification, len(vectors), texts)
	}
	for i, vector := range vectors {
		err := checkVector(vector)
		if err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
	}
	return nil
}

func checkVector(vector []float64) error {
	if len(vector) != Subtopics {
		return fmt.Errorf("%w: got %d probabilities, want %d", ErrInvalidClassification, len(vector), Subtopics)
	}
	for j, p := range vector {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %d is %v", ErrInvalidClassification, j, p)
		}
	}
	return nil
}
