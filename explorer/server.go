package explorer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v2"
)

// Server is the REST explorer of a node.
type Server struct {
	log     zerolog.Logger
	address string
	echo    *echo.Echo
}

func NewServer(log zerolog.Logger, address string, ctrl *Controller) *Server {
	log = log.With().Str("component", "explorer").Logger()
	elog := lecho.From(log)

	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.Logger = elog
	server.Use(lecho.Middleware(lecho.Config{Logger: elog}))

	server.GET("/ledgers", ctrl.ListLedgers)
	server.GET("/ledgers/:id", ctrl.GetLedger)
	server.GET("/ledgers/:id/blocks/:index", ctrl.GetBlock)
	server.GET("/ledgers/:id/valid", ctrl.GetValid)
	server.GET("/ledgers/:id/scores", ctrl.GetScores)
	server.GET("/tx/:hash", ctrl.GetTransaction)
	server.GET("/stream/blocks", ctrl.StreamBlocks)

	s := Server{
		log:     log,
		address: address,
		echo:    server,
	}

	return &s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves requests until Stop is called.
func (s *Server) Start() error {
	s.log.Info().Str("address", s.address).Msg("explorer starting")

	err := s.echo.Start(s.address)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not serve explorer: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
