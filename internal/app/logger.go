package app

import (
	"fmt"
	"io"
	"os"

	"service-dispatch/internal/config"
	"service-dispatch/internal/logx"
)

// Log backends.
const (
	LogBackendSlog    = "slog"
	LogBackendZerolog = "zerolog"
)

// NewLogger builds the logger described by cfg. A nil w writes to stdout.
func NewLogger(cfg config.Log, w io.Writer) (logx.Logger, error) {
	if w == nil {
		w = os.Stdout
	}
	level, err := logx.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "", LogBackendSlog:
		return logx.NewSlog(w, level, cfg.Format), nil
	case LogBackendZerolog:
		return logx.NewZerolog(w, level, cfg.Format), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
	}
}
