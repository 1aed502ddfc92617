package rpc_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Siasom1/esg-ledger/core/blockchain"
	"github.com/Siasom1/esg-ledger/core/store"
	"github.com/Siasom1/esg-ledger/core/types"
	"github.com/Siasom1/esg-ledger/esg"
	"github.com/Siasom1/esg-ledger/events"
	"github.com/Siasom1/esg-ledger/rpc"
	"github.com/Siasom1/esg-ledger/testing/mocks"
	"github.com/Siasom1/esg-ledger/txindex"
)

type harness struct {
	store  *store.Store
	client *gethrpc.Client
	wsURL  string

	mu       sync.Mutex
	classify func(ctx context.Context, texts []string) ([][]float64, error)
}

// setClassifier replaces the classifier answers served to the API.
func (h *harness) setClassifier(classify func(ctx context.Context, texts []string) ([][]float64, error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.classify = classify
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "chains.json")
	s := store.Open(mocks.NoopLogger, path, mocks.BaselineMiner(t), store.WithLedgerOptions(blockchain.WithClock(mocks.GenericClock())))

	index, err := txindex.NewInMemory(mocks.NoopLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	bus := events.NewEventBus()
	s.AddHook(index.Hook)
	s.AddHook(bus.PublishSealed)

	h := harness{
		store:    s,
		classify: mocks.BaselineClassifier(t).ClassifyFunc,
	}
	classifier := esg.ClassifierFunc(func(ctx context.Context, texts []string) ([][]float64, error) {
		h.mu.Lock()
		classify := h.classify
		h.mu.Unlock()
		return classify(ctx, texts)
	})
	aggregator := esg.NewAggregator(mocks.NoopLogger, classifier)

	api := rpc.NewAPI(mocks.NoopLogger, s, aggregator, index, bus)
	server, err := rpc.NewServer(mocks.NoopLogger, "127.0.0.1:0", api)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	client, err := gethrpc.DialHTTP(ts.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	h.client = client
	h.wsURL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	return &h
}

func errorCode(t *testing.T, err error) int {
	t.Helper()

	var rpcErr gethrpc.Error
	require.True(t, errors.As(err, &rpcErr), "not a JSON-RPC error: %v", err)
	return rpcErr.ErrorCode()
}

func TestAPI_Create(t *testing.T) {
	h := newHarness(t)

	var result rpc.CreateResult
	err := h.client.Call(&result, "ledger_create", "alice")
	require.NoError(t, err)
	assert.Equal(t, rpc.CreateResult{Message: rpc.MsgCreated, ID: "alice", Created: true}, result)

	err = h.client.Call(&result, "ledger_create", "alice")
	require.NoError(t, err)
	assert.Equal(t, rpc.CreateResult{Message: rpc.MsgExists, ID: "alice", Created: false}, result)

	var ids []string
	err = h.client.Call(&ids, "ledger_list")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, ids)

	err = h.client.Call(&result, "ledger_create", "")
	require.Error(t, err)
	assert.Equal(t, rpc.CodeInvalidParams, errorCode(t, err))
}

func TestAPI_AppendAndChain(t *testing.T) {
	h := newHarness(t)

	var created rpc.CreateResult
	require.NoError(t, h.client.Call(&created, "ledger_create", "alice"))

	var appended rpc.AppendResult
	err := h.client.Call(&appended, "ledger_append", "alice", mocks.GenericCourse)
	require.NoError(t, err)
	assert.Equal(t, rpc.MsgMined, appended.Message)
	require.NotNil(t, appended.Block)
	assert.Equal(t, uint64(1), appended.Block.Index)

	var chain []types.Block
	err = h.client.Call(&chain, "ledger_chain", "alice")
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.True(t, chain[0].Data.IsGenesis())
	assert.Equal(t, mocks.GenericCourse, *chain[1].Data.Course)
	assert.Equal(t, chain[0].Hash, chain[1].PrevHash)

	var validate rpc.ValidateResult
	err = h.client.Call(&validate, "ledger_validate", "alice")
	require.NoError(t, err)
	assert.Equal(t, rpc.ValidateResult{Message: rpc.MsgValid, Valid: true}, validate)

	var audit rpc.AuditResult
	err = h.client.Call(&audit, "ledger_audit", "alice")
	require.NoError(t, err)
	assert.True(t, audit.Valid)
	assert.Empty(t, audit.Failures)

	var locations []txindex.Location
	err = h.client.Call(&locations, "ledger_entries", mocks.GenericCourse.TransactionHash)
	require.NoError(t, err)
	assert.Equal(t, []txindex.Location{{LedgerID: "alice", Index: 1}}, locations)
}

func TestAPI_NotFound(t *testing.T) {
	h := newHarness(t)

	methods := map[string][]interface{}{
		"ledger_append":   {"nobody", mocks.GenericCourse},
		"ledger_chain":    {"nobody"},
		"ledger_validate": {"nobody"},
		"ledger_audit":    {"nobody"},
		"ledger_scores":   {"nobody"},
	}

	for method, args := range methods {
		var result interface{}
		err := h.client.Call(&result, method, args...)
		require.Error(t, err, method)
		assert.Equal(t, rpc.CodeLedgerNotFound, errorCode(t, err), method)
	}
}

func TestAPI_Scores(t *testing.T) {
	h := newHarness(t)

	var created rpc.CreateResult
	require.NoError(t, h.client.Call(&created, "ledger_create", "alice"))

	var scores rpc.ScoresResult
	err := h.client.Call(&scores, "ledger_scores", "alice")
	require.NoError(t, err)
	assert.Equal(t, [][3]float64{{0, 0, 0}}, scores.Scores)

	var appended rpc.AppendResult
	require.NoError(t, h.client.Call(&appended, "ledger_append", "alice", mocks.GenericCourse))

	h.setClassifier(func(context.Context, []string) ([][]float64, error) {
		return [][]float64{mocks.GenericVector(map[int]float64{0: 0.9, 1: 0.9})}, nil
	})
	err = h.client.Call(&scores, "ledger_scores", "alice")
	require.NoError(t, err)
	require.Len(t, scores.Scores, 2)
	assert.InDelta(t, 0.16, scores.Scores[0][0], 1e-9)
	assert.Equal(t, uint64(1), scores.Entries[0].BlockIndex)

	h.setClassifier(func(context.Context, []string) ([][]float64, error) {
		return nil, mocks.GenericError
	})
	err = h.client.Call(&scores, "ledger_scores", "alice")
	require.Error(t, err)
	assert.Equal(t, rpc.CodeClassifierUnavailable, errorCode(t, err))
}

func TestAPI_Audit(t *testing.T) {
	h := newHarness(t)

	var created rpc.CreateResult
	require.NoError(t, h.client.Call(&created, "ledger_create", "alice"))
	var appended rpc.AppendResult
	require.NoError(t, h.client.Call(&appended, "ledger_append", "alice", mocks.GenericCourse))

	// Tamper with the stored document and reopen it behind the API.
	ledger, err := h.store.Get("alice")
	require.NoError(t, err)
	blocks := ledger.Blocks()
	blocks[1].Nonce++
	tampered := blockchain.FromBlocks("alice", blocks)

	api := rpc.NewAPI(mocks.NoopLogger, &staticStore{ledger: tampered}, nil, nil, nil)

	validate, err := api.Validate("alice")
	require.NoError(t, err)
	assert.Equal(t, &rpc.ValidateResult{Message: rpc.MsgNotValid, Valid: false}, validate)

	audit, err := api.Audit("alice")
	require.NoError(t, err)
	assert.False(t, audit.Valid)
	assert.Equal(t, []rpc.BlockFailure{{Index: 1, Reason: blockchain.ReasonHashMismatch}}, audit.Failures)
}

func TestAPI_SealedSubscription(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, err := gethrpc.DialWebsocket(ctx, h.wsURL, "")
	require.NoError(t, err)
	defer ws.Close()

	sealed := make(chan events.Sealed, 4)
	sub, err := ws.Subscribe(ctx, rpc.Namespace, sealed, "sealed")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	var created rpc.CreateResult
	require.NoError(t, h.client.Call(&created, "ledger_create", "alice"))
	var appended rpc.AppendResult
	require.NoError(t, h.client.Call(&appended, "ledger_append", "alice", mocks.GenericCourse))

	for _, want := range []uint64{0, 1} {
		select {
		case event := <-sealed:
			assert.Equal(t, "alice", event.LedgerID)
			assert.Equal(t, want, event.Block.Index)
		case err := <-sub.Err():
			t.Fatalf("subscription failed: %v", err)
		case <-ctx.Done():
			t.Fatal("no sealed block received")
		}
	}
}

func TestAPI_SubscriptionNeedsWebsocket(t *testing.T) {
	h := newHarness(t)

	sealed := make(chan events.Sealed)
	_, err := h.client.Subscribe(context.Background(), rpc.Namespace, sealed, "sealed")
	assert.Error(t, err)
}

type staticStore struct {
	ledger *blockchain.Ledger
}

func (s *staticStore) Create(context.Context, string) (*blockchain.Ledger, error) {
	return s.ledger, store.ErrLedgerAlreadyExists
}

func (s *staticStore) Append(context.Context, string, types.Course) (*types.Block, error) {
	return nil, mocks.GenericError
}

func (s *staticStore) Get(string) (*blockchain.Ledger, error) {
	return s.ledger, nil
}

func (s *staticStore) List() []string {
	return []string{s.ledger.ID()}
}
