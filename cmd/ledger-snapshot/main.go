package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Siasom1/esg-ledger/core/store"
	"github.com/Siasom1/esg-ledger/log"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

func run() int {

	// Command line parameter initialization.
	var (
		flagStore    string
		flagSnapshot string
		flagLevel    string
		flagForce    bool
	)

	pflag.StringVarP(&flagStore, "store", "s", "chains.json", "path to the ledger store document")
	pflag.StringVarP(&flagSnapshot, "snapshot", "o", "ledgers.snap", "path to the compressed snapshot file")
	pflag.StringVarP(&flagLevel, "level", "l", "info", "log output level")
	pflag.BoolVarP(&flagForce, "force", "f", false, "overwrite an existing store on restore")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: ledger-snapshot [flags] create|restore")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	// Logger initialization.
	logger, err := log.NewLogger(flagLevel)
	if err != nil {
		logger.Error().Str("level", flagLevel).Err(err).Msg("could not parse log level")
		return failure
	}

	if pflag.NArg() != 1 {
		pflag.Usage()
		return failure
	}

	switch pflag.Arg(0) {
	case "create":
		ledgers, err := store.Load(flagStore)
		if err != nil {
			logger.Error().Err(err).Str("store", flagStore).Msg("could not load ledger store")
			return failure
		}

		file, err := os.Create(flagSnapshot)
		if err != nil {
			logger.Error().Err(err).Str("snapshot", flagSnapshot).Msg("could not create snapshot file")
			return failure
		}
		err = store.WriteSnapshot(file, ledgers)
		if err != nil {
			_ = file.Close()
			logger.Error().Err(err).Msg("could not write snapshot")
			return failure
		}
		err = file.Close()
		if err != nil {
			logger.Error().Err(err).Msg("could not close snapshot file")
			return failure
		}

		logger.Info().Int("ledgers", len(ledgers)).Str("snapshot", flagSnapshot).Msg("snapshot created")

	case "restore":
		_, err := os.Stat(flagStore)
		if err == nil && !flagForce {
			logger.Error().Str("store", flagStore).Msg("ledger store already exists, use --force to overwrite")
			return failure
		}

		file, err := os.Open(flagSnapshot)
		if err != nil {
			logger.Error().Err(err).Str("snapshot", flagSnapshot).Msg("could not open snapshot file")
			return failure
		}
		defer file.Close()

		ledgers, err := store.ReadSnapshot(file)
		if err != nil {
			logger.Error().Err(err).Msg("could not read snapshot")
			return failure
		}

		invalid := 0
		for _, ledger := range ledgers {
			if !ledger.Validate() {
				invalid++
				logger.Warn().Str("ledger", ledger.ID()).Msg("restored ledger does not validate")
			}
		}

		err = store.Save(flagStore, ledgers)
		if err != nil {
			logger.Error().Err(err).Str("store", flagStore).Msg("could not write ledger store")
			return failure
		}

		logger.Info().Int("ledgers", len(ledgers)).Int("invalid", invalid).Str("store", flagStore).Msg("snapshot restored")

	default:
		pflag.Usage()
		return failure
	}

	return success
}
