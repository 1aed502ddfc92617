package node

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Siasom1/esg-ledger/params"
)

// Config holds everything needed to run a node.
type Config struct {
	DataDir string `validate:"required"`
	// Every extra hex zero multiplies the expected mining time by sixteen.
	Difficulty          uint          `validate:"max=16"`
	MiningTimeout       time.Duration `validate:"min=0"`
	RPCAddress          string        `validate:"required,hostname_port"`
	ExplorerAddress     string        `validate:"omitempty,hostname_port"`
	MetricsAddress      string        `validate:"omitempty,hostname_port"`
	ClassifierURL       string        `validate:"omitempty,url"`
	ClassifierTimeout   time.Duration `validate:"min=0"`
	ClassifierCacheSize int64         `validate:"min=0"`
	LogLevel            string        `validate:"oneof=trace debug info warn error fatal panic disabled"`
}

func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	chain := params.ESGLedgerChainConfig()

	return Config{
		DataDir:             filepath.Join(home, ".esg-ledger"),
		Difficulty:          chain.Difficulty,
		MiningTimeout:       chain.MiningTimeout,
		RPCAddress:          "127.0.0.1:8545",
		ExplorerAddress:     "127.0.0.1:9500",
		MetricsAddress:      "",
		ClassifierURL:       "",
		ClassifierTimeout:   30 * time.Second,
		ClassifierCacheSize: 10_000,
		LogLevel:            "info",
	}
}

// Validate checks the configuration before a node is built from it.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("invalid node configuration: %w", err)
	}
	return nil
}

// StorePath is the location of the ledger store document.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir, "database", "chains.json")
}

// IndexPath is the location of the transaction index.
func (c Config) IndexPath() string {
	return filepath.Join(c.DataDir, "txindex")
}
