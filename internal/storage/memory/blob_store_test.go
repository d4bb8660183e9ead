package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectStoresCopy(t *testing.T) {
	t.Parallel()
	store := NewBlobStore()

	payload := []byte("raw response")
	uri, err := store.PutObject(context.Background(), "debug/r1.txt", "text/plain", payload)
	require.NoError(t, err)
	require.Equal(t, "memory://debug/r1.txt", uri)

	payload[0] = 'X' // mutation of the caller's slice must not leak in
	stored, ok := store.Object("debug/r1.txt")
	require.True(t, ok)
	require.Equal(t, "raw response", string(stored))
	require.Equal(t, 1, store.Len())
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()
	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "", "", nil)
	require.Error(t, err)
}
