package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlocklist_CheckURL(t *testing.T) {
	b := NewBlocklist([]string{"maliciousbook.com", " .EvilVideos.com ", ""})
	assert.Equal(t, []string{"maliciousbook.com", "evilvideos.com"}, b.Domains())

	tests := []struct {
		url     string
		blocked bool
	}{
		{"https://maliciousbook.com/feed", true},
		{"https://www.maliciousbook.com", true},
		{"http://EVILVIDEOS.com:8080/x", true},
		{"https://notmaliciousbook.com", false},
		{"https://example.com/?q=maliciousbook.com", false},
		{"about:blank", false},
		{"data:text/html,hi", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		err := b.CheckURL(tt.url)
		if tt.blocked {
			assert.ErrorIs(t, err, ErrBlockedURL, tt.url)
		} else {
			assert.NoError(t, err, tt.url)
		}
	}
}

func TestBlocklist_Empty(t *testing.T) {
	var nilList *Blocklist
	assert.True(t, nilList.Empty())
	assert.False(t, nilList.BlockedHost("example.com"))
	assert.NoError(t, nilList.CheckURL("https://example.com"))

	b := NewBlocklist(nil)
	assert.True(t, b.Empty())
	assert.NoError(t, b.CheckURL("https://maliciousbook.com"))
}

func TestBlocklist_TrailingDot(t *testing.T) {
	b := NewBlocklist([]string{"shadytok.com"})
	assert.True(t, b.BlockedHost("shadytok.com."))
}
