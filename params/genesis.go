package params

// ------------------------------------------------------------
// GENESIS
// ------------------------------------------------------------

const (
	// GenesisData is the literal payload of block #0 of every ledger.
	// It is stored verbatim in the chains document.
	GenesisData = "Genesis Block"

	// TimestampLayout is the text form of block timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

// ------------------------------------------------------------
// PROOF OF WORK
// ------------------------------------------------------------

const (
	// DefaultDifficulty is the number of leading hex zeros a block hash needs.
	DefaultDifficulty uint = 4

	// MaxDifficulty is the length of a hex encoded SHA-256 digest.
	MaxDifficulty uint = 64
)
