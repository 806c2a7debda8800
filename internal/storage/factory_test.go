package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore("memory", "")
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NoError(t, CloseIfSupported(store))
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("unknown", "")
	require.ErrorIs(t, err, ErrUnsupportedStore)
}

func TestNewStoreDefaultKind(t *testing.T) {
	store, err := NewStore(DefaultStoreKind(), ":memory:")
	require.NoError(t, err)
	require.NotNil(t, store)
}
