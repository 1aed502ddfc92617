package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Siasom1/esg-ledger/log"
	"github.com/Siasom1/esg-ledger/node"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

func run() int {

	// Signal catching for clean shutdown.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	// Command line parameter initialization.
	cfg := node.DefaultConfig()

	pflag.StringVarP(&cfg.DataDir, "datadir", "d", cfg.DataDir, "data directory for the ledger store and transaction index")
	pflag.UintVar(&cfg.Difficulty, "difficulty", cfg.Difficulty, "number of leading hex zeros required in block hashes")
	pflag.DurationVar(&cfg.MiningTimeout, "mining-timeout", cfg.MiningTimeout, "maximum time spent mining one block (0 for no limit)")
	pflag.StringVarP(&cfg.RPCAddress, "rpc", "r", cfg.RPCAddress, "address for the JSON-RPC server")
	pflag.StringVarP(&cfg.ExplorerAddress, "explorer", "e", cfg.ExplorerAddress, "address for the REST explorer (empty to disable)")
	pflag.StringVarP(&cfg.MetricsAddress, "metrics", "m", cfg.MetricsAddress, "address for the prometheus metrics (empty to disable)")
	pflag.StringVarP(&cfg.ClassifierURL, "classifier", "c", cfg.ClassifierURL, "JSON-RPC URL of the ESG classifier service")
	pflag.DurationVar(&cfg.ClassifierTimeout, "classifier-timeout", cfg.ClassifierTimeout, "timeout for a single classifier call")
	pflag.Int64Var(&cfg.ClassifierCacheSize, "classifier-cache", cfg.ClassifierCacheSize, "number of classifications to cache (0 to disable)")
	pflag.StringVarP(&cfg.LogLevel, "level", "l", cfg.LogLevel, "log output level")

	pflag.Parse()

	// Logger initialization.
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error().Str("level", cfg.LogLevel).Err(err).Msg("could not parse log level")
		return failure
	}

	n, err := node.New(logger, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("could not initialize node")
		return failure
	}
	defer func() {
		err := n.Close()
		if err != nil {
			logger.Error().Err(err).Msg("could not close node cleanly")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- n.Run(ctx)
	}()

	select {
	case <-sig:
		logger.Info().Msg("ESG ledger node stopping")
		cancel()
	case err := <-done:
		if err != nil {
			logger.Error().Err(err).Msg("ESG ledger node failed")
			return failure
		}
		return success
	}
	go func() {
		<-sig
		logger.Warn().Msg("forcing exit")
		os.Exit(1)
	}()

	err = <-done
	if err != nil {
		logger.Error().Err(err).Msg("could not shut down cleanly")
		return failure
	}

	logger.Info().Msg("ESG ledger node stopped")

	return success
}
