package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadTracker_CompletedIsRenamed(t *testing.T) {
	dir := t.TempDir()
	tr := newDownloadTracker(dir)

	tr.begin("guid-1", "report.csv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guid-1"), []byte("a,b\n"), 0644))
	tr.progress("guid-1", cdpbrowser.DownloadProgressStateInProgress)
	tr.progress("guid-1", cdpbrowser.DownloadProgressStateCompleted)

	dl, err := tr.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "report.csv", dl.Filename)
	assert.Equal(t, filepath.Join(dir, "report.csv"), dl.Path)

	data, err := os.ReadFile(dl.Path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestDownloadTracker_Canceled(t *testing.T) {
	tr := newDownloadTracker(t.TempDir())
	tr.begin("g", "x.csv")
	tr.progress("g", cdpbrowser.DownloadProgressStateCanceled)

	dl, err := tr.wait(context.Background())
	require.Error(t, err)
	assert.True(t, dl.Canceled)
}

func TestDownloadTracker_UnknownGUIDIgnored(t *testing.T) {
	tr := newDownloadTracker(t.TempDir())
	tr.progress("nope", cdpbrowser.DownloadProgressStateCompleted)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.wait(ctx)
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestDownloadTracker_MissingFileKeepsGUIDPath(t *testing.T) {
	dir := t.TempDir()
	tr := newDownloadTracker(dir)
	tr.begin("g", "x.csv")
	tr.progress("g", cdpbrowser.DownloadProgressStateCompleted)

	dl, err := tr.wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "g"), dl.Path)
}

func TestMoveDownload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))

	dl, err := moveDownload(Download{Filename: "report.csv", Path: src}, "metabase_query_result_20240101_000000.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "metabase_query_result_20240101_000000.csv"), dl.Path)
	assert.FileExists(t, dl.Path)
	assert.NoFileExists(t, src)

	same, err := moveDownload(dl, "")
	require.NoError(t, err)
	assert.Equal(t, dl, same)
}
