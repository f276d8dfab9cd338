// Package storage provides the local recipient directory cache.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store maps (namespace, key) pairs to values that expire after a TTL.
// Channel adapters use it to remember resolved recipient addresses.
type Store interface {
	Close() error
	Lookup(namespace, key string) (string, bool, error)
	Save(namespace, key, value string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	TypeBBolt  = "bbolt"
	TypeSQLite = "sqlite"

	defaultEntryTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	case TypeSQLite:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("sqlite storage requires a path")
		}
		return openSQLite(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

func entryKey(namespace, key string) string {
	return strings.ToLower(strings.TrimSpace(namespace)) + "/" + strings.TrimSpace(key)
}

type noopStore struct{}

func (noopStore) Close() error                                { return nil }
func (noopStore) Lookup(string, string) (string, bool, error) { return "", false, nil }
func (noopStore) Save(string, string, string) error           { return nil }
