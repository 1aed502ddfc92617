package explorer

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Siasom1/esg-ledger/core/blockchain"
	"github.com/Siasom1/esg-ledger/core/store"
	"github.com/Siasom1/esg-ledger/core/types"
	"github.com/Siasom1/esg-ledger/esg"
	"github.com/Siasom1/esg-ledger/events"
	"github.com/Siasom1/esg-ledger/txindex"
)

// Ledgers gives read access to the ledgers of a node.
type Ledgers interface {
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

// Controller serves the read-only explorer endpoints.
type Controller struct {
	ledgers Ledgers
	scorer  Scorer
	index   TxIndex
	feed    Feed
}

func NewController(ledgers Ledgers, scorer Scorer, index TxIndex, feed Feed) *Controller {
	c := Controller{
		ledgers: ledgers,
		scorer:  scorer,
		index:   index,
		feed:    feed,
	}

	return &c
}

type LedgerSummary struct {
	ID     string `json:"id"`
	Length int    `json:"length"`
	Head   string `json:"head"`
}

type LedgerResponse struct {
	ID      string             `json:"id"`
	Blocks  []types.Block      `json:"chain"`
	Entries []blockchain.Entry `json:"entries"`
}

type ValidResponse struct {
	ID    string `json:"id"`
	Valid bool   `json:"valid"`
}

type ScoresResponse struct {
	ID      string           `json:"id"`
	Scores  [][3]float64     `json:"scores"`
	Entries []esg.EntryScore `json:"entries"`
}

type TxResponse struct {
	Hash      string             `json:"hash"`
	Locations []txindex.Location `json:"locations"`
}

func (c *Controller) ListLedgers(ctx echo.Context) error {
	ids := c.ledgers.List()

	res := make([]LedgerSummary, 0, len(ids))
	for _, id := range ids {
		ledger, err := c.ledgers.Get(id)
		if err != nil {
			continue
		}
		summary := LedgerSummary{ID: id, Length: ledger.Len()}
		head, err := ledger.Head()
		if err == nil {
			summary.Head = head.Hash.String()
		}
		res = append(res, summary)
	}

	return ctx.JSON(http.StatusOK, res)
}

func (c *Controller) GetLedger(ctx echo.Context) error {
	ledger, err := c.ledger(ctx)
	if err != nil {
		return err
	}

	entries := ledger.Entries()
	if entries == nil {
		entries = []blockchain.Entry{}
	}
	res := LedgerResponse{
		ID:      ledger.ID(),
		Blocks:  ledger.Blocks(),
		Entries: entries,
	}

	return ctx.JSON(http.StatusOK, res)
}

func (c *Controller) GetBlock(ctx echo.Context) error {
	ledger, err := c.ledger(ctx)
	if err != nil {
		return err
	}

	index, err := strconv.ParseUint(ctx.Param("index"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid block index")
	}

	block, err := ledger.Block(index)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}

	return ctx.JSON(http.StatusOK, block)
}

func (c *Controller) GetValid(ctx echo.Context) error {
	ledger, err := c.ledger(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, ValidResponse{ID: ledger.ID(), Valid: ledger.Validate()})
}

func (c *Controller) GetScores(ctx echo.Context) error {
	ledger, err := c.ledger(ctx)
	if err != nil {
		return err
	}

	scores, err := c.scorer.Score(ctx.Request().Context(), ledger)
	if errors.Is(err, esg.ErrClassifierUnavailable) || errors.Is(err, esg.ErrInvalidClassification) {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	res := ScoresResponse{
		ID:      ledger.ID(),
		Scores:  scores.Matrix(),
		Entries: scores.Entries,
	}

	return ctx.JSON(http.StatusOK, res)
}

func (c *Controller) GetTransaction(ctx echo.Context) error {
	hash := ctx.Param("hash")

	locations, err := c.index.Lookup(hash)
	if errors.Is(err, txindex.ErrInvalidHash) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(locations) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "transaction not recorded")
	}

	return ctx.JSON(http.StatusOK, TxResponse{Hash: txindex.Normalize(hash), Locations: locations})
}

func (c *Controller) ledger(ctx echo.Context) (*blockchain.Ledger, error) {
	ledger, err := c.ledgers.Get(ctx.Param("id"))
	if errors.Is(err, store.ErrLedgerNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return ledger, nil
}
