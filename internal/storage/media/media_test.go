package media

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	n, err := store.Save("token-1", strings.NewReader("binary data"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("binary data")), n)

	f, err := store.Open("token-1")
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "binary data", string(data))

	require.NoError(t, store.Remove("token-1"))
	_, err = store.Open("token-1")
	assert.Error(t, err)

	// Removing an absent token is not an error.
	assert.NoError(t, store.Remove("token-1"))
}

func TestStoreIgnoresPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	_, err = store.Save("../escape", strings.NewReader("x"))
	require.NoError(t, err)

	// The file lands inside the store directory, not beside it.
	f, err := store.Open("escape")
	require.NoError(t, err)
	f.Close()
}
