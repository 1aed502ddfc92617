package store

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/Siasom1/esg-ledger/core/blockchain"
	"github.com/Siasom1/esg-ledger/core/types"
)

const snapshotVersion = 1

type snapshot struct {
	Version uint             `cbor:"1,keyasint"`
	Ledgers []snapshotLedger `cbor:"2,keyasint"`
}

type snapshotLedger struct {
	ID     string          `cbor:"1,keyasint"`
	Blocks []snapshotBlock `cbor:"2,keyasint"`
}

type snapshotBlock struct {
	Index     uint64        `cbor:"1,keyasint"`
	Timestamp string        `cbor:"2,keyasint"`
	Marker    string        `cbor:"3,keyasint,omitempty"`
	Course    *types.Course `cbor:"4,keyasint,omitempty"`
	PrevHash  []byte        `cbor:"5,keyasint"`
	Nonce     uint64        `cbor:"6,keyasint"`
	Hash      []byte        `cbor:"7,keyasint"`
}

// WriteSnapshot writes the ledgers as canonical CBOR, compressed with
// Zstandard.
func WriteSnapshot(w io.Writer, ledgers []*blockchain.Ledger) error {
	snap := snapshot{
		Version: snapshotVersion,
		Ledgers: make([]snapshotLedger, 0, len(ledgers)),
	}
	for _, ledger := range ledgers {
		blocks := ledger.Blocks()
		entry := snapshotLedger{
			ID:     ledger.ID(),
			Blocks: make([]snapshotBlock, 0, len(blocks)),
		}
		for _, block := range blocks {
			block := block
			entry.Blocks = append(entry.Blocks, snapshotBlock{
				Index:     block.Index,
				Timestamp: block.Timestamp,
				Marker:    block.Data.Marker,
				Course:    block.Data.Course,
				PrevHash:  block.PrevHash[:],
				Nonce:     block.Nonce,
				Hash:      block.Hash[:],
			})
		}
		snap.Ledgers = append(snap.Ledgers, entry)
	}

	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return fmt.Errorf("could not initialize encoder: %w", err)
	}
	compressor, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("could not initialize compressor: %w", err)
	}

	err = mode.NewEncoder(compressor).Encode(snap)
	if err != nil {
		_ = compressor.Close()
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	err = compressor.Close()
	if err != nil {
		return fmt.Errorf("could not flush snapshot: %w", err)
	}

	return nil
}

// ReadSnapshot reads ledgers written by WriteSnapshot.
func ReadSnapshot(r io.Reader, options ...func(*blockchain.Config)) ([]*blockchain.Ledger, error) {
	decompressor, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not initialize decompressor: %w", err)
	}
	defer decompressor.Close()

	var snap snapshot
	err = cbor.NewDecoder(decompressor).Decode(&snap)
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode snapshot: %s", ErrInvalidDocument, err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d", ErrInvalidDocument, snap.Version)
	}

	seen := make(map[string]struct{}, len(snap.Ledgers))
	ledgers := make([]*blockchain.Ledger, 0, len(snap.Ledgers))
	for i, entry := range snap.Ledgers {
		err := checkLedger(seen, i, entry.ID, len(entry.Blocks))
		if err != nil {
			return nil, err
		}

		blocks := make([]types.Block, 0, len(entry.Blocks))
		for _, b := range entry.Blocks {
			if len(b.PrevHash) != types.HashLength || len(b.Hash) != types.HashLength {
				return nil, fmt.Errorf("%w: block %d of %q has a malformed hash", ErrInvalidDocument, b.Index, entry.ID)
			}
			blocks = append(blocks, types.Block{
				Index:     b.Index,
				Timestamp: b.Timestamp,
				Data:      types.Payload{Marker: b.Marker, Course: b.Course},
				PrevHash:  types.BytesToHash(b.PrevHash),
				Nonce:     b.Nonce,
				Hash:      types.BytesToHash(b.Hash),
			})
		}
		ledgers = append(ledgers, blockchain.FromBlocks(entry.ID, blocks, options...))
	}

	return ledgers, nil
}
