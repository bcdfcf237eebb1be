package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	cdpbrowser "github.com/chromedp/cdproto/browser"
)

// Download is a finished (or cancelled) file download.
type Download struct {
	GUID     string `json:"guid"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Canceled bool   `json:"canceled,omitempty"`
}

// downloadTracker turns Browser.downloadWillBegin / downloadProgress events into
// completed files. Chrome saves each download under its GUID; completed files
// are renamed to the suggested filename.
type downloadTracker struct {
	dir     string
	mu      sync.Mutex
	pending map[string]string // guid -> suggested filename
	done    chan Download
}

func newDownloadTracker(dir string) *downloadTracker {
	return &downloadTracker{
		dir:     dir,
		pending: make(map[string]string),
		done:    make(chan Download, 16),
	}
}

func (t *downloadTracker) begin(guid, suggested string) {
	t.mu.Lock()
	t.pending[guid] = suggested
	t.mu.Unlock()
}

func (t *downloadTracker) progress(guid string, state cdpbrowser.DownloadProgressState) {
	if state != cdpbrowser.DownloadProgressStateCompleted && state != cdpbrowser.DownloadProgressStateCanceled {
		return
	}

	t.mu.Lock()
	name, ok := t.pending[guid]
	delete(t.pending, guid)
	t.mu.Unlock()
	if !ok {
		return
	}

	d := Download{GUID: guid, Filename: name, Canceled: state == cdpbrowser.DownloadProgressStateCanceled}
	if !d.Canceled {
		d.Path = t.finalize(guid, name)
	}

	select {
	case t.done <- d:
	default:
		// 无人等待且缓冲已满，丢弃最旧的结果
		select {
		case <-t.done:
		default:
		}
		t.done <- d
	}
}

func (t *downloadTracker) finalize(guid, name string) string {
	src := filepath.Join(t.dir, guid)
	if name == "" {
		return src
	}
	dst := filepath.Join(t.dir, filepath.Base(name))
	if err := os.Rename(src, dst); err != nil {
		return src
	}
	return dst
}

// wait blocks until the next download finishes.
func (t *downloadTracker) wait(ctx context.Context) (Download, error) {
	select {
	case d := <-t.done:
		if d.Canceled {
			return d, fmt.Errorf("download %q was canceled", d.Filename)
		}
		return d, nil
	case <-ctx.Done():
		return Download{}, fmt.Errorf("%w: %v", ErrDownloadTimeout, ctx.Err())
	}
}

// moveDownload renames a finished download to name inside the same directory.
func moveDownload(d Download, name string) (Download, error) {
	if name == "" || d.Path == "" {
		return d, nil
	}
	dst := filepath.Join(filepath.Dir(d.Path), filepath.Base(name))
	if err := os.Rename(d.Path, dst); err != nil {
		return d, fmt.Errorf("failed to rename download: %w", err)
	}
	d.Path = dst
	d.Filename = filepath.Base(name)
	return d, nil
}
