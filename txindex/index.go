package txindex

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Siasom1/esg-ledger/core/blockchain"
	"github.com/Siasom1/esg-ledger/core/types"
)

var ErrInvalidHash = errors.New("invalid transaction hash")

var prefixTx = []byte("tx/")

// Location is a block recording a given transaction hash.
type Location struct {
	LedgerID string `json:"ledger_id"`
	Index    uint64 `json:"index"`
}

type entry struct {
	TxHash string `json:"tx_hash"`
	Location
}

// Index maps course transaction hashes to the blocks that record them. It
// is derived data: it can always be rebuilt from the ledgers.
type Index struct {
	log zerolog.Logger
	db  *leveldb.DB
}

// Open opens the LevelDB index at the given path.
func Open(log zerolog.Logger, path string) (*Index, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("could not open transaction index: %w", err)
	}
	return newIndex(log, db), nil
}

// NewInMemory creates an index that lives in memory only.
func NewInMemory(log zerolog.Logger) (*Index, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not open in-memory transaction index: %w", err)
	}
	return newIndex(log, db), nil
}

func newIndex(log zerolog.Logger, db *leveldb.DB) *Index {
	return &Index{
		log: log.With().Str("component", "txindex").Logger(),
		db:  db,
	}
}

func (i *Index) Close() error {
	if i.db != nil {
		return i.db.Close()
	}
	return nil
}

// Normalize returns the lookup form of a transaction hash. 32 byte hex
// hashes, with or without prefix, are lower-cased with a 0x prefix; anything
// else is only trimmed.
func Normalize(hash string) string {
	hash = strings.TrimSpace(hash)
	candidate := strings.ToLower(hash)
	if !strings.HasPrefix(candidate, "0x") {
		candidate = "0x" + candidate
	}
	b, err := hexutil.Decode(candidate)
	if err == nil && len(b) == common.HashLength {
		return common.BytesToHash(b).Hex()
	}
	return hash
}

// Put records the block under its course transaction hash. Genesis blocks and
// courses without a transaction hash are skipped.
func (i *Index) Put(id string, block *types.Block) error {
	batch := new(leveldb.Batch)
	err := add(batch, id, block)
	if err != nil {
		return err
	}
	if batch.Len() == 0 {
		return nil
	}
	return i.db.Write(batch, nil)
}

// Hook indexes sealed blocks as they are committed by the store.
func (i *Index) Hook(id string, block *types.Block) {
	err := i.Put(id, block)
	if err != nil {
		i.log.Error().Err(err).Str("ledger", id).Uint64("index", block.Index).Msg("could not index block")
	}
}

// Lookup returns every block recording the transaction hash.
func (i *Index) Lookup(hash string) ([]Location, error) {
	norm := Normalize(hash)
	if norm == "" {
		return nil, ErrInvalidHash
	}

	iter := i.db.NewIterator(util.BytesPrefix(hashPrefix(norm)), nil)
	defer iter.Release()

	var locations []Location
	for iter.Next() {
		var e entry
		err := json.Unmarshal(iter.Value(), &e)
		if err != nil {
			return nil, fmt.Errorf("could not decode index entry: %w", err)
		}
		// Raw hashes may contain the key separator.
		if e.TxHash != norm {
			continue
		}
		locations = append(locations, e.Location)
	}
	err := iter.Error()
	if err != nil {
		return nil, fmt.Errorf("could not iterate index: %w", err)
	}

	return locations, nil
}

// Rebuild drops the whole index and indexes the given ledgers again.
func (i *Index) Rebuild(ledgers []*blockchain.Ledger) error {
	batch := new(leveldb.Batch)

	iter := i.db.NewIterator(util.BytesPrefix(prefixTx), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	err := iter.Error()
	if err != nil {
		return fmt.Errorf("could not iterate index: %w", err)
	}

	count := 0
	for _, ledger := range ledgers {
		for _, block := range ledger.Blocks() {
			block := block
			err := add(batch, ledger.ID(), &block)
			if err != nil {
				return err
			}
			count++
		}
	}

	err = i.db.Write(batch, nil)
	if err != nil {
		return fmt.Errorf("could not write index: %w", err)
	}

	i.log.Info().Int("ledgers", len(ledgers)).Int("blocks", count).Msg("transaction index rebuilt")

	return nil
}

func add(batch *leveldb.Batch, id string, block *types.Block) error {
	if block.Data.Course == nil {
		return nil
	}
	norm := Normalize(block.Data.Course.TransactionHash)
	if norm == "" {
		return nil
	}

	value, err := json.Marshal(entry{
		TxHash:   norm,
		Location: Location{LedgerID: id, Index: block.Index},
	})
	if err != nil {
		return fmt.Errorf("could not encode index entry: %w", err)
	}
	batch.Put(entryKey(norm, id, block.Index), value)

	return nil
}

func hashPrefix(norm string) []byte {
	key := make([]byte, 0, len(prefixTx)+len(norm)+1)
	key = append(key, prefixTx...)
	key = append(key, norm...)
	return append(key, '/')
}

func entryKey(norm string, id string, index uint64) []byte {
	key := hashPrefix(norm)
	key = append(key, id...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, index)
}
