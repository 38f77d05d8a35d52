package file

import (
	"context"
	"os"
	"path/filepath"
	"pharmacy/internal/model"
	"pharmacy/internal/storage"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_LoadMissingIsEmpty(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "nested", "session.json"))

	pair, err := f.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, pair.Empty())
}

func TestFile_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pharmacy", "session.json")
	f := New(path)

	require.NoError(t, storage.Save(ctx, f, model.TokenPair{Access: "a-1", Refresh: "r-1"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, f.SaveAccess(ctx, "a-2"))

	pair, err := New(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.TokenPair{Access: "a-2", Refresh: "r-1"}, pair)

	require.NoError(t, f.Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// clearing twice is fine
	require.NoError(t, f.Clear(ctx))
}

func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
