package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/Siasom1/esg-ledger/core/types"
)

var (
	ErrEmptyLedger = errors.New("ledger has no genesis block")
	ErrStaleHead   = errors.New("ledger head changed while mining")
)

// Miner seals candidate blocks.
type Miner interface {
	Seal(ctx context.Context, block types.UnsealedBlock) (*types.Block, error)
}

// --------------------------------------------------------
// Ledger struct
// --------------------------------------------------------

// Ledger is the append-only chain of blocks of a single participant.
type Ledger struct {
	cfg Config

	mu     sync.RWMutex
	id     string
	blocks []types.Block
}

// NewLedger creates a ledger holding only a freshly mined genesis block.
func NewLedger(ctx context.Context, id string, miner Miner, options ...func(*Config)) (*Ledger, error) {
	l := newLedger(id, nil, options...)

	genesis := types.UnsealedBlock{
		Index:     0,
		Timestamp: l.timestamp(),
		Data:      types.GenesisPayload(),
		PrevHash:  types.ZeroHash,
	}
	sealed, err := miner.Seal(ctx, genesis)
	if err != nil {
		return nil, fmt.Errorf("could not seal genesis block: %w", err)
	}
	l.blocks = append(l.blocks, *sealed)

	return l, nil
}

// FromBlocks rebuilds a ledger from already sealed blocks, e.g. after
// decoding. Nothing is re-mined or validated.
func FromBlocks(id string, blocks []types.Block, options ...func(*Config)) *Ledger {
	copied := make([]types.Block, len(blocks))
	copy(copied, blocks)
	return newLedger(id, copied, options...)
}

func newLedger(id string, blocks []types.Block, options ...func(*Config)) *Ledger {
	cfg := DefaultConfig()
	for _, option := range options {
		option(&cfg)
	}
	if blocks == nil {
		blocks = make([]types.Block, 0, 1)
	}
	return &Ledger{
		cfg:    cfg,
		id:     id,
		blocks: blocks,
	}
}

func (l *Ledger) timestamp() string {
	return l.cfg.Clock().Format(l.cfg.TimestampLayout)
}

// --------------------------------------------------------
// Append
// --------------------------------------------------------

// Append mines a block for the course on top of the current head. The
// course is not validated. Callers must serialise appends per ledger; if the
// head moves while mining the block is discarded with ErrStaleHead.
func (l *Ledger) Append(ctx context.Context, miner Miner, course types.Course) (*types.Block, error) {
	l.mu.RLock()
	n := len(l.blocks)
	if n == 0 {
		l.mu.RUnlock()
		return nil, ErrEmptyLedger
	}
	head := l.blocks[n-1].Hash
	l.mu.RUnlock()

	candidate := types.UnsealedBlock{
		Index:     uint64(n),
		Timestamp: l.timestamp(),
		Data:      types.CoursePayload(course),
		PrevHash:  head,
	}
	sealed, err := miner.Seal(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("could not seal block %d: %w", candidate.Index, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.blocks) != n || l.blocks[n-1].Hash != head {
		return nil, fmt.Errorf("%w: mined on block %d, head is now %d", ErrStaleHead, n-1, len(l.blocks)-1)
	}
	l.blocks = append(l.blocks, *sealed)

	out := *sealed
	return &out, nil
}

// --------------------------------------------------------
// Validation
// --------------------------------------------------------

// Validate recomputes the hash of every block after genesis and checks its
// link to the previous block. It stops at the first mismatch. The genesis
// block itself is trusted, and proof-of-work is not re-checked.
func (l *Ledger) Validate() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 1; i < len(l.blocks); i++ {
		if checkBlock(&l.blocks[i], &l.blocks[i-1]) != nil {
			return false
		}
	}
	return true
}

// Audit runs the same checks as Validate on every block and returns all
// failures as a multierror of *BlockError. It returns nil exactly when
// Validate returns true.
func (l *Ledger) Audit() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var merr *multierror.Error
	for i := 1; i < len(l.blocks); i++ {
		err := checkBlock(&l.blocks[i], &l.blocks[i-1])
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}

func checkBlock(current, previous *types.Block) error {
	if current.Hash != current.Digest() {
		return &BlockError{Index: current.Index, Reason: ReasonHashMismatch}
	}
	if current.PrevHash != previous.Hash {
		return &BlockError{Index: current.Index, Reason: ReasonBrokenLink}
	}
	return nil
}

// --------------------------------------------------------
// Read helpers
// --------------------------------------------------------

func (l *Ledger) ID() string {
	return l.id
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Head returns a copy of the last block.
func (l *Ledger) Head() (*types.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.blocks) == 0 {
		return nil, ErrEmptyLedger
	}
	head := l.blocks[len(l.blocks)-1]
	return &head, nil
}

// Block returns a copy of the block at the given index.
func (l *Ledger) Block(index uint64) (*types.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.blocks)) {
		return nil, fmt.Errorf("block %d out of range (length %d)", index, len(l.blocks))
	}
	block := l.blocks[index]
	return &block, nil
}

// Blocks returns a copy of the whole chain.
func (l *Ledger) Blocks() []types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]types.Block, len(l.blocks))
	copy(blocks, l.blocks)
	return blocks
}

// Entry is a course recorded by a non-genesis block.
type Entry struct {
	Index  uint64       `json:"index"`
	Course types.Course `json:"course"`
}

// Entries lists the courses of all blocks after genesis, in chain order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.blocks) < 2 {
		return nil
	}
	entries := make([]Entry, 0, len(l.blocks)-1)
	for _, block := range l.blocks[1:] {
		if block.Data.Course == nil {
			continue
		}
		entries = append(entries, Entry{Index: block.Index, Course: *block.Data.Course})
	}
	return entries
}
