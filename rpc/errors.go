package rpc

import (
	"errors"

	"github.com/Siasom1/esg-ledger/core/store"
	"github.com/Siasom1/esg-ledger/esg"
	"github.com/Siasom1/esg-ledger/txindex"
)

// JSON-RPC error codes returned by the ledger API.
const (
	CodeInvalidParams         = -32602
	CodeLedgerNotFound        = -32004
	CodeClassifierUnavailable = -32010
)

// apiError carries a JSON-RPC error code to the client.
type apiError struct {
	code int
	msg  string
}

func (e *apiError) Error() string {
	return e.msg
}

func (e *apiError) ErrorCode() int {
	return e.code
}

// toAPIError attaches the error code matching a core error, if any.
func toAPIError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrLedgerNotFound):
		return &apiError{code: CodeLedgerNotFound, msg: err.Error()}
	case errors.Is(err, esg.ErrClassifierUnavailable),
		errors.Is(err, esg.ErrInvalidClassification):
		return &apiError{code: CodeClassifierUnavailable, msg: err.Error()}
	case errors.Is(err, store.ErrInvalidLedgerID),
		errors.Is(err, txindex.ErrInvalidHash):
		return &apiError{code: CodeInvalidParams, msg: err.Error()}
	default:
		return err
	}
}
