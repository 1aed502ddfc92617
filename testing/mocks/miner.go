package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/Siasom1/esg-ledger/core/types"
)

type Miner struct {
	SealFunc func(ctx context.Context, block types.UnsealedBlock) (*types.Block, error)
}

// BaselineMiner seals every block at its current nonce without any
// proof-of-work.
func BaselineMiner(t *testing.T) *Miner {
	t.Helper()

	m := Miner{
		SealFunc: func(_ context.Context, block types.UnsealedBlock) (*types.Block, error) {
			hash := types.Digest(block.Index, block.Timestamp, block.Data, block.PrevHash, block.Nonce)
			return block.Seal(block.Nonce, hash), nil
		},
	}

	return &m
}

func (m *Miner) Seal(ctx context.Context, block types.UnsealedBlock) (*types.Block, error) {
	return m.SealFunc(ctx, block)
}

type MinerMetrics struct {
	BlockSealedFunc     func(attempts uint64, duration time.Duration)
	MiningCancelledFunc func()
}

func BaselineMinerMetrics(t *testing.T) *MinerMetrics {
	t.Helper()

	m := MinerMetrics{
		BlockSealedFunc:     func(uint64, time.Duration) {},
		MiningCancelledFunc: func() {},
	}

	return &m
}

func (m *MinerMetrics) BlockSealed(attempts uint64, duration time.Duration) {
	m.BlockSealedFunc(attempts, duration)
}

func (m *MinerMetrics) MiningCancelled() {
	m.MiningCancelledFunc()
}
