package filestore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func TestLocalStoreSaveOpen(t *testing.T) {
	store, err := createLocalStore(map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	content := []byte("pulse oximeter service manual")
	require.NoError(t, store.Save(context.Background(), "doc1.txt", memFile{bytes.NewReader(content)}, int64(len(content))))

	rc, err := store.Open(context.Background(), "doc1.txt")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store, err := createLocalStore(map[string]interface{}{"dir": t.TempDir()})
	require.NoError(t, err)

	content := []byte("x")
	err = store.Save(context.Background(), "../escape.txt", memFile{bytes.NewReader(content)}, 1)
	require.Error(t, err)

	_, err = store.Open(context.Background(), "a/b.txt")
	require.Error(t, err)
}
