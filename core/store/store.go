package store

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Siasom1/esg-ledger/core/blockchain"
	"github.com/Siasom1/esg-ledger/core/types"
)

// Metrics records store failures.
type Metrics interface {
	FlushFailed()
}

// Hook is called after a block was appended and the store was flushed.
type Hook func(id string, block *types.Block)

// Config configures a Store.
type Config struct {
	MiningTimeout time.Duration
	Metrics       Metrics
	LedgerOptions []func(*blockchain.Config)
}

func DefaultConfig() Config {
	return Config{
		MiningTimeout: 0,
		Metrics:       nil,
	}
}

// WithMiningTimeout bounds the time spent mining a single block. Zero means
// no bound.
func WithMiningTimeout(timeout time.Duration) func(*Config) {
	return func(cfg *Config) {
		cfg.MiningTimeout = timeout
	}
}

func WithMetrics(metrics Metrics) func(*Config) {
	return func(cfg *Config) {
		cfg.Metrics = metrics
	}
}

// WithLedgerOptions applies the given options to every ledger the store
// creates or loads.
func WithLedgerOptions(options ...func(*blockchain.Config)) func(*Config) {
	return func(cfg *Config) {
		cfg.LedgerOptions = append(cfg.LedgerOptions, options...)
	}
}

// ------------------------------------------------------------
// Store
// ------------------------------------------------------------

// Store owns all ledgers of a node and keeps them persisted in a single
// document. Mutations of one ledger are serialised; different ledgers can be
// mined concurrently.
type Store struct {
	log   zerolog.Logger
	cfg   Config
	path  string
	miner blockchain.Miner

	mu      sync.RWMutex
	ledgers map[string]*blockchain.Ledger
	order   []string
	locks   map[string]*sync.Mutex
	hooks   []Hook
	loadErr error

	flushMu sync.Mutex
	dirty   bool
}

// Open loads the store document at path. A document that cannot be read or
// decoded does not fail the call: the store starts empty and the failure is
// reported by LoadError.
func Open(log zerolog.Logger, path string, miner blockchain.Miner, options ...func(*Config)) *Store {
	cfg := DefaultConfig()
	for _, option := range options {
		option(&cfg)
	}

	s := Store{
		log:     log.With().Str("component", "store").Logger(),
		cfg:     cfg,
		path:    path,
		miner:   miner,
		ledgers: make(map[string]*blockchain.Ledger),
		locks:   make(map[string]*sync.Mutex),
	}

	ledgers, err := Load(path, cfg.LedgerOptions...)
	if err != nil {
		s.loadErr = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		s.log.Warn().Err(err).Str("path", path).Msg("could not load ledger store, starting empty")
		return &s
	}

	for _, ledger := range ledgers {
		s.ledgers[ledger.ID()] = ledger
		s.order = append(s.order, ledger.ID())
	}

	s.log.Info().Str("path", path).Int("ledgers", len(ledgers)).Msg("ledger store loaded")

	return &s
}

// LoadError returns the error that made Open start with an empty store, if
// any.
func (s *Store) LoadError() error {
	return s.loadErr
}

// AddHook registers a hook for sealed blocks, including genesis blocks.
func (s *Store) AddHook(hook Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// ------------------------------------------------------------
// Mutations
// ------------------------------------------------------------

// Create mines a new ledger with a genesis block. If the id is taken, the
// existing ledger is returned together with ErrLedgerAlreadyExists.
func (s *Store) Create(ctx context.Context, id string) (*blockchain.Ledger, error) {
	err := checkID(id)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.Get(id)
	if err == nil {
		return existing, fmt.Errorf("%w: %q", ErrLedgerAlreadyExists, id)
	}

	ctx, cancel := s.miningContext(ctx)
	defer cancel()

	ledger, err := blockchain.NewLedger(ctx, id, s.miner, s.cfg.LedgerOptions...)
	if err != nil {
		return nil, fmt.Errorf("could not create ledger %q: %w", id, err)
	}

	s.mu.Lock()
	s.ledgers[id] = ledger
	s.order = append(s.order, id)
	s.mu.Unlock()

	s.log.Info().Str("ledger", id).Msg("ledger created")

	genesis, _ := ledger.Head()
	s.commit(id, genesis)

	return ledger, nil
}

// Append mines a block for the course on top of the ledger's head.
func (s *Store) Append(ctx context.Context, id string, course types.Course) (*types.Block, error) {
	// Ledgers are never removed, so only known ids get a lock.
	ledger, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := s.miningContext(ctx)
	defer cancel()

	block, err := ledger.Append(ctx, s.miner, course)
	if err != nil {
		return nil, fmt.Errorf("could not append to ledger %q: %w", id, err)
	}

	s.log.Info().
		Str("ledger", id).
		Uint64("index", block.Index).
		Str("hash", block.Hash.String()).
		Msg("block appended")

	s.commit(id, block)

	return block, nil
}

// commit persists the store after a mutation and notifies the hooks. A
// failed flush leaves the store dirty; it is retried on the next mutation or
// on Close.
func (s *Store) commit(id string, block *types.Block) {
	s.flushMu.Lock()
	s.dirty = true
	s.flushMu.Unlock()

	_ = s.Flush()

	s.mu.RLock()
	hooks := make([]Hook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()

	for _, hook := range hooks {
		hook(id, block)
	}
}

// Flush writes the whole store document if it has unsaved changes.
func (s *Store) Flush() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	if !s.dirty {
		return nil
	}

	err := Save(s.path, s.Ledgers())
	if err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("could not flush ledger store")
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.FlushFailed()
		}
		return fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}
	s.dirty = false

	return nil
}

// Close flushes pending changes.
func (s *Store) Close() error {
	return s.Flush()
}

// ------------------------------------------------------------
// Reads
// ------------------------------------------------------------

func (s *Store) Get(id string) (*blockchain.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, ok := s.ledgers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLedgerNotFound, id)
	}
	return ledger, nil
}

// List returns the ledger ids in creation order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Ledgers returns all ledgers in creation order.
func (s *Store) Ledgers() []*blockchain.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledgers := make([]*blockchain.Ledger, 0, len(s.order))
	for _, id := range s.order {
		ledgers = append(ledgers, s.ledgers[id])
	}
	return ledgers
}

// Snapshot writes a compressed binary copy of every ledger to w.
func (s *Store) Snapshot(w io.Writer) error {
	return WriteSnapshot(w, s.Ledgers())
}

// ------------------------------------------------------------
// Helpers
// ------------------------------------------------------------

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

func (s *Store) miningContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.MiningTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.MiningTimeout)
}

func checkID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidLedgerID)
	}
	return nil
}
