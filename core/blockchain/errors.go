package blockchain

import "fmt"

// Reason explains why a block failed validation.
type Reason string

const (
	ReasonHashMismatch Reason = "stored hash does not match block contents"
	ReasonBrokenLink   Reason = "previous hash does not match prior block"
)

// BlockError is a validation failure of a single block.
type BlockError struct {
	Index  uint64
	Reason Reason
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %d invalid: %s", e.Index, e.Reason)
}
