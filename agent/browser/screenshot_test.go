package browser

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestNewScreenshot(t *testing.T) {
	data := pngBytes(t, 1024, 768)
	shot, err := NewScreenshot(data, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, 1024, shot.Width)
	assert.Equal(t, 768, shot.Height)
	assert.Equal(t, "https://example.com", shot.URL)

	decoded, err := base64.StdEncoding.DecodeString(shot.Base64())
	require.NoError(t, err)
	assert.Equal(t, data, decoded)
}

func TestImageSize_Invalid(t *testing.T) {
	_, _, err := ImageSize([]byte("not an image"))
	assert.Error(t, err)
}

func TestSaveScreenshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshots")
	path, err := SaveScreenshot(dir, "shot.png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "shot.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestDecodeElementInfo(t *testing.T) {
	_, err := decodeElementInfo([]byte("null"), "#x")
	assert.ErrorIs(t, err, ErrElementNotFound)

	info, err := decodeElementInfo([]byte(`{"tag":"a","text":"Go","attributes":{"href":"/"},"isVisible":true,"boundingBox":{"x":1,"y":2,"width":3,"height":4}}`), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", info.Tag)
	assert.Equal(t, "/", info.Attributes["href"])
	assert.Equal(t, &BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}, info.BoundingBox)
}

func TestElementInfoScript(t *testing.T) {
	css := elementInfoScript(Locator{Strategy: StrategyCSS, Query: `[data-testid="x"]`})
	assert.Contains(t, css, `document.querySelector("[data-testid=\"x\"]")`)

	xp := elementInfoScript(Locator{Strategy: StrategyXPath, Query: "//button"})
	assert.Contains(t, xp, `document.evaluate("//button"`)
}
