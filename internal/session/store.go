package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store persists the backend conversation id for each chat.
// Keys are opaque strings built by the dispatcher; values are raw bytes.
type Store interface {
	// Get returns nil, nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	Close() error
}

// Backend names accepted in Config.Backend.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// Config holds conversation storage configuration.
type Config struct {
	Backend    string        `mapstructure:"backend"`     // sqlite, memory or none
	Path       string        `mapstructure:"path"`        // sqlite file (empty = XDG data dir)
	MaxEntries int           `mapstructure:"max_entries"` // memory backend size limit
	TTL        time.Duration `mapstructure:"ttl"`         // expire idle conversations (0=never)
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		Backend:    BackendSQLite,
		MaxEntries: 10000,
		TTL:        0, // Never expire
	}
}

// GetDataDir returns the XDG data directory for line-llm.
// Uses $XDG_DATA_HOME if set, otherwise ~/.local/share
func GetDataDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "line-llm"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "line-llm"), nil
}

// GetDBPath returns the path to the conversations database.
func GetDBPath() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "conversations.db"), nil
}

// NewStore creates a new Store based on the configuration.
func NewStore(cfg Config, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		return NewSQLiteStore(cfg, logger)
	case BackendMemory:
		return NewMemoryStore(cfg), nil
	case BackendNone, "noop", "off":
		return &NoopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
