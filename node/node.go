package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Siasom1/esg-ledger/consensus/pow"
	"github.com/Siasom1/esg-ledger/core/store"
	"github.com/Siasom1/esg-ledger/esg"
	"github.com/Siasom1/esg-ledger/events"
	"github.com/Siasom1/esg-ledger/explorer"
	"github.com/Siasom1/esg-ledger/metrics"
	"github.com/Siasom1/esg-ledger/rpc"
	"github.com/Siasom1/esg-ledger/txindex"
)

const shutdownTimeout = 30 * time.Second

var errNoClassifier = errors.New("no classifier configured")

// Node wires the ledger store and its services together.
type Node struct {
	log zerolog.Logger
	cfg Config

	Registry   *prometheus.Registry
	Metrics    *metrics.Collector
	Store      *store.Store
	Index      *txindex.Index
	Events     *events.EventBus
	Aggregator *esg.Aggregator
	API        *rpc.API

	rpcServer      *rpc.Server
	explorerServer *explorer.Server
	metricsServer  *metrics.Server

	closers []func() error
}

func New(log zerolog.Logger, cfg Config) (*Node, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	n := Node{
		log:      log.With().Str("component", "node").Logger(),
		cfg:      cfg,
		Registry: prometheus.NewRegistry(),
		Events:   events.NewEventBus(),
	}

	n.Metrics, err = metrics.NewCollector(n.Registry)
	if err != nil {
		return nil, fmt.Errorf("could not register metrics: %w", err)
	}

	// Ledger store.
	miner := pow.NewMiner(log, cfg.Difficulty, pow.WithMetrics(n.Metrics))
	n.Store = store.Open(log, cfg.StorePath(), miner,
		store.WithMiningTimeout(cfg.MiningTimeout),
		store.WithMetrics(n.Metrics),
	)
	n.closers = append(n.closers, n.Store.Close)

	// Transaction index, derived from the store on every start.
	n.Index, err = txindex.Open(log, cfg.IndexPath())
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	n.closers = append(n.closers, n.Index.Close)
	err = n.Index.Rebuild(n.Store.Ledgers())
	if err != nil {
		_ = n.Close()
		return nil, fmt.Errorf("could not rebuild transaction index: %w", err)
	}

	n.Store.AddHook(n.Index.Hook)
	n.Store.AddHook(n.Events.PublishSealed)

	// Scoring.
	classifier, err := n.classifier()
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	n.Aggregator = esg.NewAggregator(log, classifier, esg.WithMetrics(n.Metrics))

	// Request layer.
	n.API = rpc.NewAPI(log, n.Store, n.Aggregator, n.Index, n.Events)
	n.rpcServer, err = rpc.NewServer(log, cfg.RPCAddress, n.API)
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	if cfg.ExplorerAddress != "" {
		ctrl := explorer.NewController(n.Store, n.Aggregator, n.Index, n.Events)
		n.explorerServer = explorer.NewServer(log, cfg.ExplorerAddress, ctrl)
	}
	if cfg.MetricsAddress != "" {
		n.metricsServer = metrics.NewServer(log, cfg.MetricsAddress, n.Registry)
	}

	n.log.Info().
		Str("data_dir", cfg.DataDir).
		Uint("difficulty", cfg.Difficulty).
		Int("ledgers", len(n.Store.List())).
		Msg("node initialized")

	return &n, nil
}

func (n *Node) classifier() (esg.Classifier, error) {
	if n.cfg.ClassifierURL == "" {
		n.log.Warn().Msg("no classifier configured, scoring is unavailable")
		return esg.ClassifierFunc(func(context.Context, []string) ([][]float64, error) {
			return nil, errNoClassifier
		}), nil
	}

	ctx := context.Background()
	if n.cfg.ClassifierTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.cfg.ClassifierTimeout)
		defer cancel()
	}
	remote, err := esg.DialClassifier(ctx, n.cfg.ClassifierURL, n.cfg.ClassifierTimeout)
	if err != nil {
		return nil, err
	}
	n.closers = append(n.closers, func() error {
		remote.Close()
		return nil
	})

	if n.cfg.ClassifierCacheSize == 0 {
		return remote, nil
	}

	cached, err := esg.NewCachedClassifier(remote, n.cfg.ClassifierCacheSize)
	if err != nil {
		return nil, err
	}
	n.closers = append(n.closers, func() error {
		cached.Close()
		return nil
	})

	return cached, nil
}

// Run serves the request layer until the context is cancelled or a server
// fails, then shuts every server down.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(n.rpcServer.Start)
	if n.explorerServer != nil {
		g.Go(n.explorerServer.Start)
	}
	if n.metricsServer != nil {
		g.Go(n.metricsServer.Start)
	}

	g.Go(func() error {
		<-ctx.Done()
		n.log.Info().Msg("node stopping")

		shutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var merr *multierror.Error
		merr = multierror.Append(merr, n.rpcServer.Stop(shutdown))
		if n.explorerServer != nil {
			merr = multierror.Append(merr, n.explorerServer.Stop(shutdown))
		}
		if n.metricsServer != nil {
			merr = multierror.Append(merr, n.metricsServer.Stop(shutdown))
		}
		return merr.ErrorOrNil()
	})

	n.log.Info().Msg("node started")

	return g.Wait()
}

// Close flushes the store and releases every resource, in reverse order of
// acquisition.
func (n *Node) Close() error {
	var merr *multierror.Error
	for i := len(n.closers) - 1; i >= 0; i-- {
		err := n.closers[i]()
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	n.closers = nil
	return merr.ErrorOrNil()
}
