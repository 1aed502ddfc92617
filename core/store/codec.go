package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Siasom1/esg-ledger/core/blockchain"
	"github.com/Siasom1/esg-ledger/core/types"
)

// record is a single ledger in the store document.
type record struct {
	ID    string        `json:"id"`
	Chain []types.Block `json:"chain"`
}

// Encode writes the ledgers as one JSON document, in the given order.
func Encode(ledgers []*blockchain.Ledger) ([]byte, error) {
	records := make([]record, 0, len(ledgers))
	for _, ledger := range ledgers {
		records = append(records, record{
			ID:    ledger.ID(),
			Chain: ledger.Blocks(),
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode ledgers: %w", err)
	}

	return data, nil
}

// Decode reads a document written by Encode. Blocks are taken as stored;
// nothing is re-mined or validated.
func Decode(data []byte, options ...func(*blockchain.Config)) ([]*blockchain.Ledger, error) {
	var records []record
	err := json.Unmarshal(data, &records)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocument, err)
	}

	seen := make(map[string]struct{}, len(records))
	ledgers := make([]*blockchain.Ledger, 0, len(records))
	for i, rec := range records {
		err := checkLedger(seen, i, rec.ID, len(rec.Chain))
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, blockchain.FromBlocks(rec.ID, rec.Chain, options...))
	}

	return ledgers, nil
}

// checkLedger rejects ledgers that Store could not serve: missing or
// duplicate ids and chains without a genesis block.
func checkLedger(seen map[string]struct{}, position int, id string, blocks int) error {
	if id == "" {
		return fmt.Errorf("%w: ledger %d has no id", ErrInvalidDocument, position)
	}
	if _, ok := seen[id]; ok {
		return fmt.Errorf("%w: duplicate ledger id %q", ErrInvalidDocument, id)
	}
	if blocks == 0 {
		return fmt.Errorf("%w: ledger %q has no blocks", ErrInvalidDocument, id)
	}
	seen[id] = struct{}{}
	return nil
}

// ------------------------------------------------------------
// Document files
// ------------------------------------------------------------

// Load reads the document at path. A missing file is an empty store.
func Load(path string, options ...func(*blockchain.Config)) ([]*blockchain.Ledger, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read ledger document: %w", err)
	}

	return Decode(data, options...)
}

// Save replaces the document at path. The new content is written to a
// temporary file in the same directory and renamed over the old one, so
// readers never observe a partial document.
func Save(path string, ledgers []*blockchain.Ledger) error {
	data, err := Encode(ledgers)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	err = os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("could not create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("could not create temporary document: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("could not write temporary document: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("could not close temporary document: %w", closeErr)
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		return fmt.Errorf("could not replace ledger document: %w", err)
	}

	return nil
}
