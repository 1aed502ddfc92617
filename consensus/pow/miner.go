package pow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Siasom1/esg-ledger/core/types"
	"github.com/Siasom1/esg-ledger/params"
)

var (
	ErrMiningCancelled   = errors.New("mining cancelled")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// Miner seals blocks by searching for a nonce whose digest starts with
// `difficulty` hex zeros.
type Miner struct {
	log        zerolog.Logger
	difficulty uint
	cfg        Config
}

func NewMiner(log zerolog.Logger, difficulty uint, options ...func(*Config)) *Miner {
	cfg := DefaultConfig
	for _, option := range options {
		option(&cfg)
	}

	return &Miner{
		log:        log.With().Str("component", "miner").Logger(),
		difficulty: difficulty,
		cfg:        cfg,
	}
}

func (m *Miner) Difficulty() uint {
	return m.difficulty
}

// Seal runs the nonce search starting at the block's current nonce. The
// search has no upper bound; it only stops early when ctx is done, in which
// case the error wraps ErrMiningCancelled and the context error.
func (m *Miner) Seal(ctx context.Context, block types.UnsealedBlock) (*types.Block, error) {
	if m.difficulty > params.MaxDifficulty {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrInvalidDifficulty, m.difficulty, params.MaxDifficulty)
	}

	start := time.Now()
	digester := types.NewDigester(block.Index, block.Timestamp, block.Data, block.PrevHash)
	nonce := block.Nonce

	for attempts := uint64(1); ; attempts++ {
		hash := digester.Sum(nonce)
		if hash.HasLeadingZeros(m.difficulty) {
			elapsed := time.Since(start)
			if m.cfg.Metrics != nil {
				m.cfg.Metrics.BlockSealed(attempts, elapsed)
			}
			m.log.Debug().
				Uint64("index", block.Index).
				Uint64("nonce", nonce).
				Uint64("attempts", attempts).
				Dur("duration", elapsed).
				Str("hash", hash.String()).
				Msg("block sealed")
			return block.Seal(nonce, hash), nil
		}

		nonce++

		if attempts%m.cfg.PollInterval != 0 {
			continue
		}
		err := ctx.Err()
		if err == nil {
			continue
		}
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.MiningCancelled()
		}
		m.log.Warn().
			Uint64("index", block.Index).
			Uint64("attempts", attempts).
			Err(err).
			Msg("mining cancelled")
		return nil, fmt.Errorf("%w: %w", ErrMiningCancelled, err)
	}
}

// Verify checks that a sealed block's stored hash matches its fields and
// satisfies the miner's difficulty.
func (m *Miner) Verify(block *types.Block) bool {
	if !block.Hash.HasLeadingZeros(m.difficulty) {
		return false
	}
	return block.Digest() == block.Hash
}
