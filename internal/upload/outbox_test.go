package upload

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startOutbox(t *testing.T, uploader *stubUploader) (dir string, resync *stubResyncer) {
	t.Helper()

	dir = t.TempDir()
	resync = &stubResyncer{}
	pipeline := NewPipeline("c-1", uploader, resync, testNavigator(t), slog.Default())
	outbox := NewOutbox(dir, pipeline, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = outbox.Watch(ctx) }()

	return dir, resync
}

func TestOutbox_UploadsDroppedFileOnce(t *testing.T) {
	uploader := &stubUploader{}
	dir, _ := startOutbox(t, uploader)

	// Give the watcher a moment to register before dropping the file.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("contents"), 0o600))

	assert.Eventually(t, func() bool {
		return uploader.callCount() == 1
	}, 3*time.Second, 50*time.Millisecond, "dropped file should be uploaded exactly once")

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, 3*time.Second, 50*time.Millisecond, "uploaded file should be removed from the outbox")

	// No further uploads after removal.
	time.Sleep(settleDelay * 2)
	assert.Equal(t, 1, uploader.callCount())
}

func TestOutbox_DrainsExistingFiles(t *testing.T) {
	uploader := &stubUploader{}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.txt"), []byte("x"), 0o600))

	pipeline := NewPipeline("c-1", uploader, &stubResyncer{}, testNavigator(t), slog.Default())
	outbox := NewOutbox(dir, pipeline, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = outbox.Watch(ctx) }()

	assert.Eventually(t, func() bool {
		return uploader.callCount() == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestOutbox_RejectedFileStaysInPlace(t *testing.T) {
	uploader := &stubUploader{}
	dir, _ := startOutbox(t, uploader)

	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "tool.exe")
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o600))

	// The reject happens before the uploader; the file must survive it.
	time.Sleep(settleDelay * 3)
	assert.Zero(t, uploader.callCount())
	assert.FileExists(t, path)
}

func TestOutbox_IgnoresHiddenFiles(t *testing.T) {
	uploader := &stubUploader{}
	dir, _ := startOutbox(t, uploader)

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft.txt~"), []byte("x"), 0o600))

	time.Sleep(settleDelay * 3)
	assert.Zero(t, uploader.callCount())
}
