package params

import "time"

// ChainConfig holds the ledger-wide parameters shared by all ledgers of a
// deployment.
type ChainConfig struct {
	Difficulty    uint          `json:"difficulty"`
	MiningTimeout time.Duration `json:"miningTimeout"`
}

func ESGLedgerChainConfig() *ChainConfig {
	return &ChainConfig{
		Difficulty:    DefaultDifficulty,
		MiningTimeout: 0,
	}
}
