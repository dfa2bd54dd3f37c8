package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherCallsBackOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chat.txt")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o600))

	changed := make(chan struct{}, 4)
	w := New("prompts", []string{file, "", file}, 20*time.Millisecond, func() { changed <- struct{}{} }, nil)
	assert.Equal(t, []string{file}, w.Files())

	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	assert.True(t, w.IsRunning())

	require.NoError(t, os.WriteFile(file, []byte("v2"), 0o600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(file, future, future))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change callback")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(file, []byte("cert"), 0o600))

	changed := make(chan struct{}, 1)
	w := New("tls", []string{file}, 10*time.Millisecond, func() { changed <- struct{}{} }, nil)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600))

	select {
	case <-changed:
		t.Fatal("unrelated file should not trigger a callback")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherLifecycle(t *testing.T) {
	assert.Error(t, New("empty", nil, 0, func() {}, nil).Start())

	file := filepath.Join(t.TempDir(), "key.pem")
	w := New("tls", []string{file}, 0, func() {}, nil)
	assert.Equal(t, defaultDebounce, w.debounceDelay)

	require.NoError(t, w.Start(), "missing files are watched through their directory")
	assert.Error(t, w.Start())
	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())
	assert.NoError(t, w.Stop())
}
