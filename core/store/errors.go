package store

import "errors"

var (
	ErrStoreUnavailable    = errors.New("ledger store unavailable")
	ErrStoreWriteFailed    = errors.New("ledger store write failed")
	ErrLedgerNotFound      = errors.New("ledger not found")
	ErrLedgerAlreadyExists = errors.New("ledger already exists")
	ErrInvalidLedgerID     = errors.New("invalid ledger id")
	ErrInvalidDocument     = errors.New("invalid ledger document")
)
