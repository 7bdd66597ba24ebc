package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestWatchWakesOnMappedFileWrite(t *testing.T) {
	dir := t.TempDir()
	mapped := filepath.Join(dir, "a.txt")
	other := filepath.Join(dir, "other.txt")
	require.NoError(t, os.WriteFile(mapped, []byte("v1"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, _ := test.NewNullLogger()
	wake, err := Watch(ctx, []string{mapped}, logger)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))
	select {
	case <-wake:
		t.Fatal("woke for an unmapped file")
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(mapped, []byte("v2"), 0o644))
	select {
	case <-wake:
	case <-time.After(5 * time.Second):
		t.Fatal("no wake-up after writing a mapped file")
	}
}
