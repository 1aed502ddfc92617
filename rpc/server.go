package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
)

// Namespace of the ledger API methods, e.g. ledger_create.
const Namespace = "ledger"

// Server serves the ledger API over HTTP at / and websocket at /ws.
type Server struct {
	log    zerolog.Logger
	rpc    *gethrpc.Server
	server *http.Server
}

func NewServer(log zerolog.Logger, address string, api *API) (*Server, error) {
	srv := gethrpc.NewServer()
	err := srv.RegisterName(Namespace, api)
	if err != nil {
		return nil, fmt.Errorf("could not register ledger API: %w", err)
	}

	s := Server{
		log: log.With().Str("component", "rpc_server").Logger(),
		rpc: srv,
	}

	s.server = &http.Server{
		Addr:    address,
		Handler: s.Handler(),
	}

	return &s, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.rpc.WebsocketHandler([]string{"*"}))
	mux.Handle("/", s.rpc)
	return mux
}

// Start serves requests until Stop is called.
func (s *Server) Start() error {
	s.log.Info().Str("address", s.server.Addr).Msg("rpc server starting")

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not listen and serve: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.rpc.Stop()
	return err
}
