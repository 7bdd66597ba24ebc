package remote

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/csync/internal/config"
	"github.com/chmdznr/csync/pkg/models"
)

func TestFSStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFSStore(afero.NewMemMapFs(), "/remote")
	mtime := time.Date(2024, 5, 1, 10, 30, 0, 987654321, time.UTC)

	created, err := store.Create(ctx, "sync", "a.txt", strings.NewReader("hello"),
		models.UploadInfo{Size: 5, ModTime: mtime})
	require.NoError(t, err)
	assert.Equal(t, "a.txt", created.Name)
	assert.Equal(t, models.NormalizeTime(mtime), created.ModifiedTime)

	files, err := store.List(ctx, "sync")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, created.ID, files[0].ID)
	assert.Equal(t, models.NormalizeTime(mtime), files[0].ModifiedTime)
	assert.Equal(t, int64(5), files[0].Size)

	later := mtime.Add(time.Hour)
	updated, err := store.Update(ctx, created.ID, strings.NewReader("hello, world"),
		models.UploadInfo{Size: 12, ModTime: later})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	var buf bytes.Buffer
	n, err := store.Download(ctx, created.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "hello, world", buf.String())
}

func TestFSStoreListSkipsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/sync/nested", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/sync/b.txt", []byte("b"), 0o644))

	files, err := NewFSStore(fs, "").List(context.Background(), "/sync")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "b.txt", files[0].Name)
}

func TestFSStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewFSStore(afero.NewMemMapFs(), "")

	_, err := store.Update(ctx, "/sync/missing.txt", strings.NewReader(""), models.UploadInfo{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Download(ctx, "/sync/missing.txt", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.List(ctx, "/sync")
	assert.Error(t, err)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), config.RemoteConfig{Backend: "ftp"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestNewFSBackend(t *testing.T) {
	store, err := New(context.Background(), config.RemoteConfig{Backend: config.BackendFS})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, store)
}
