package pow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siasom1/esg-ledger/consensus/pow"
	"github.com/Siasom1/esg-ledger/core/types"
	"github.com/Siasom1/esg-ledger/testing/mocks"
)

func candidate() types.UnsealedBlock {
	return types.UnsealedBlock{
		Index:     1,
		Timestamp: "2023-05-06 07:08:09",
		Data:      types.CoursePayload(mocks.GenericCourse),
		PrevHash:  types.HashBytes([]byte("parent")),
	}
}

func TestMiner_Seal(t *testing.T) {
	t.Run("finds the first nonce satisfying the difficulty", func(t *testing.T) {
		miner := pow.NewMiner(mocks.NoopLogger, 2)

		block, err := miner.Seal(context.Background(), candidate())
		require.NoError(t, err)

		assert.True(t, block.Hash.HasLeadingZeros(2))
		assert.Equal(t, block.Digest(), block.Hash)
		assert.True(t, miner.Verify(block))

		// Every earlier nonce must have failed.
		c := candidate()
		for nonce := uint64(0); nonce < block.Nonce; nonce++ {
			hash := types.Digest(c.Index, c.Timestamp, c.Data, c.PrevHash, nonce)
			assert.False(t, hash.HasLeadingZeros(2), "nonce %d already satisfied difficulty", nonce)
		}
	})

	t.Run("keeps the candidate fields", func(t *testing.T) {
		miner := pow.NewMiner(mocks.NoopLogger, 1)
		c := candidate()

		block, err := miner.Seal(context.Background(), c)
		require.NoError(t, err)

		assert.Equal(t, c.Index, block.Index)
		assert.Equal(t, c.Timestamp, block.Timestamp)
		assert.Equal(t, c.Data, block.Data)
		assert.Equal(t, c.PrevHash, block.PrevHash)
	})

	t.Run("difficulty zero accepts the starting nonce", func(t *testing.T) {
		miner := pow.NewMiner(mocks.NoopLogger, 0)

		block, err := miner.Seal(context.Background(), candidate())
		require.NoError(t, err)
		assert.Equal(t, uint64(0), block.Nonce)
	})

	t.Run("reports sealed blocks to metrics", func(t *testing.T) {
		var sealed uint64
		metrics := mocks.BaselineMinerMetrics(t)
		metrics.BlockSealedFunc = func(attempts uint64, _ time.Duration) {
			sealed = attempts
		}
		miner := pow.NewMiner(mocks.NoopLogger, 1, pow.WithMetrics(metrics))

		block, err := miner.Seal(context.Background(), candidate())
		require.NoError(t, err)
		assert.Equal(t, block.Nonce+1, sealed)
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancelled := false
		metrics := mocks.BaselineMinerMetrics(t)
		metrics.MiningCancelledFunc = func() {
			cancelled = true
		}
		miner := pow.NewMiner(mocks.NoopLogger, 64, pow.WithPollInterval(1), pow.WithMetrics(metrics))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		block, err := miner.Seal(ctx, candidate())
		assert.Nil(t, block)
		assert.ErrorIs(t, err, pow.ErrMiningCancelled)
		assert.True(t, errors.Is(err, context.Canceled))
		assert.True(t, cancelled)
	})

	t.Run("stops on deadline", func(t *testing.T) {
		miner := pow.NewMiner(mocks.NoopLogger, 64)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := miner.Seal(ctx, candidate())
		assert.ErrorIs(t, err, pow.ErrMiningCancelled)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("rejects impossible difficulty", func(t *testing.T) {
		miner := pow.NewMiner(mocks.NoopLogger, 65)

		_, err := miner.Seal(context.Background(), candidate())
		assert.ErrorIs(t, err, pow.ErrInvalidDifficulty)
	})
}

func TestMiner_Verify(t *testing.T) {
	miner := pow.NewMiner(mocks.NoopLogger, 2)

	block, err := miner.Seal(context.Background(), candidate())
	require.NoError(t, err)

	tampered := *block
	tampered.Nonce++
	assert.False(t, miner.Verify(&tampered))

	strict := pow.NewMiner(mocks.NoopLogger, block.Hash.LeadingZeros()+1)
	assert.False(t, strict.Verify(block))
}
