package storage

import (
	"errors"
	"fmt"
)

var ErrUnsupportedStore = errors.New("unsupported store kind")

// NewStore returns an uninitialized store; callers run Init before use.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w: %q (want memory or sqlite)", ErrUnsupportedStore, kind)
	}
}

// CloseIfSupported releases stores that hold a connection.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
