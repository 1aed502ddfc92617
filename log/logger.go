package log

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the node logger writing to stderr at the given level.
func NewLogger(level string) (zerolog.Logger, error) {
	return New(os.Stderr, level)
}

// New creates a logger with UTC timestamps writing to w.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(w).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return log, fmt.Errorf("could not parse log level %q: %w", level, err)
	}

	return log.Level(lvl), nil
}
