package browser

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"
)

// Screenshot is a captured viewport image.
type Screenshot struct {
	Data      []byte    `json:"data"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Timestamp time.Time `json:"timestamp"`
	URL       string    `json:"url"`
}

// NewScreenshot wraps encoded image bytes, reading the dimensions from the header.
func NewScreenshot(data []byte, url string) (*Screenshot, error) {
	w, h, err := ImageSize(data)
	if err != nil {
		return nil, err
	}
	return &Screenshot{Data: data, Width: w, Height: h, Timestamp: time.Now(), URL: url}, nil
}

// Base64 returns the image as standard base64.
func (s *Screenshot) Base64() string { return EncodeBase64(s.Data) }

// EncodeBase64 encodes image bytes for transports that expect text.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// ImageSize decodes only the image header.
func ImageSize(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// SaveScreenshot writes data to dir/name, creating dir when needed.
func SaveScreenshot(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}
