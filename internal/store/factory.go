package store

import (
	"fmt"
	"log/slog"

	"github.com/vannot/vannot/internal/store/fs"
)

// Config selects and configures a storage backend.
type Config struct {
	Type    string // "fs" is the only backend today
	DataDir string
}

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg Config, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "", "fs":
		return fs.New(cfg.DataDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
