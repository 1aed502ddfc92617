package rpc

import (
	"context"
	"errors"
	"fmt"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/Siasom1/esg-ledger/core/blockchain"
	"github.com/Siasom1/esg-ledger/core/store"
	"github.com/Siasom1/esg-ledger/core/types"
	"github.com/Siasom1/esg-ledger/esg"
	"github.com/Siasom1/esg-ledger/events"
	"github.com/Siasom1/esg-ledger/txindex"
)

const (
	MsgCreated  = "A chain is CREATED"
	MsgExists   = "The chain already EXISTS"
	MsgMined    = "A block is MINED"
	MsgValid    = "The chain is VALID"
	MsgNotValid = "The chain is NOT VALID"
)

// LedgerStore holds the ledgers served by the API.
type LedgerStore interface {
	Create(ctx context.Context, id string) (*blockchain.Ledger, error)
	Append(ctx context.Context, id string, course types.Course) (*types.Block, error)
	Get(id string) (*blockchain.Ledger, error)
	List() []string
}

type Scorer interface {
	Score(ctx context.Context, chain esg.Chain) (*esg.Scores, error)
}

type TxIndex interface {
	Lookup(hash string) ([]txindex.Location, error)
}

type Feed interface {
	SubscribeSealed() (<-chan events.Sealed, func())
}

type CreateResult struct {
	Message string `json:"message"`
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

type AppendResult struct {
	Message string       `json:"message"`
	Block   *types.Block `json:"block"`
}

type ValidateResult struct {
	Message string `json:"message"`
	Valid   bool   `json:"valid"`
}

type BlockFailure struct {
	Index  uint64            `json:"index"`
	Reason blockchain.Reason `json:"reason"`
}

type AuditResult struct {
	Valid    bool           `json:"valid"`
	Failures []BlockFailure `json:"failures"`
}

type ScoresResult struct {
	Scores  [][3]float64     `json:"scores"`
	Entries []esg.EntryScore `json:"entries"`
}

// API is the ledger JSON-RPC namespace.
type API struct {
	log    zerolog.Logger
	store  LedgerStore
	scorer Scorer
	index  TxIndex
	feed   Feed
}

func NewAPI(log zerolog.Logger, store LedgerStore, scorer Scorer, index TxIndex, feed Feed) *API {
	a := API{
		log:    log.With().Str("component", "rpc").Logger(),
		store:  store,
		scorer: scorer,
		index:  index,
		feed:   feed,
	}

	return &a
}

// Create creates a ledger. Creating an existing ledger is not an error.
func (a *API) Create(ctx context.Context, id string) (*CreateResult, error) {
	_, err := a.store.Create(ctx, id)
	if errors.Is(err, store.ErrLedgerAlreadyExists) {
		return &CreateResult{Message: MsgExists, ID: id, Created: false}, nil
	}
	if err != nil {
		return nil, toAPIError(err)
	}
	return &CreateResult{Message: MsgCreated, ID: id, Created: true}, nil
}

func (a *API) Append(ctx context.Context, id string, course types.Course) (*AppendResult, error) {
	block, err := a.store.Append(ctx, id, course)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &AppendResult{Message: MsgMined, Block: block}, nil
}

func (a *API) Chain(id string) ([]types.Block, error) {
	ledger, err := a.store.Get(id)
	if err != nil {
		return nil, toAPIError(err)
	}
	return ledger.Blocks(), nil
}

func (a *API) Validate(id string) (*ValidateResult, error) {
	ledger, err := a.store.Get(id)
	if err != nil {
		return nil, toAPIError(err)
	}
	if !ledger.Validate() {
		return &ValidateResult{Message: MsgNotValid, Valid: false}, nil
	}
	return &ValidateResult{Message: MsgValid, Valid: true}, nil
}

func (a *API) Audit(id string) (*AuditResult, error) {
	ledger, err := a.store.Get(id)
	if err != nil {
		return nil, toAPIError(err)
	}

	result := AuditResult{
		Valid:    true,
		Failures: []BlockFailure{},
	}
	err = ledger.Audit()
	if err == nil {
		return &result, nil
	}

	result.Valid = false
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil, fmt.Errorf("unexpected audit result: %w", err)
	}
	for _, e := range merr.Errors {
		var berr *blockchain.BlockError
		if errors.As(e, &berr) {
			result.Failures = append(result.Failures, BlockFailure{Index: berr.Index, Reason: berr.Reason})
		}
	}

	return &result, nil
}

func (a *API) Scores(ctx context.Context, id string) (*ScoresResult, error) {
	ledger, err := a.store.Get(id)
	if err != nil {
		return nil, toAPIError(err)
	}

	scores, err := a.scorer.Score(ctx, ledger)
	if err != nil {
		a.log.Warn().Err(err).Str("ledger", id).Msg("could not score ledger")
		return nil, toAPIError(err)
	}

	return &ScoresResult{Scores: scores.Matrix(), Entries: scores.Entries}, nil
}

// Entries lists the blocks recording a course transaction hash, across all
// ledgers.
func (a *API) Entries(txHash string) ([]txindex.Location, error) {
	locations, err := a.index.Lookup(txHash)
	if err != nil {
		return nil, toAPIError(err)
	}
	if locations == nil {
		locations = []txindex.Location{}
	}
	return locations, nil
}

func (a *API) List() []string {
	return a.store.List()
}

// Sealed streams every block committed to any ledger, as
// ledger_subscribe("sealed").
func (a *API) Sealed(ctx context.Context) (*gethrpc.Subscription, error) {
	notifier, supported := gethrpc.NotifierFromContext(ctx)
	if !supported {
		return &gethrpc.Subscription{}, gethrpc.ErrNotificationsUnsupported
	}

	sub := notifier.CreateSubscription()
	sealed, cancel := a.feed.SubscribeSealed()

	go func() {
		defer cancel()
		for {
			select {
			case event, ok := <-sealed:
				if !ok {
					return
				}
				err := notifier.Notify(sub.ID, event)
				if err != nil {
					a.log.Debug().Err(err).Msg("could not notify subscriber")
					return
				}
			case <-sub.Err():
				return
			}
		}
	}()

	return sub, nil
}
