package browser

import (
	"testing"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
)

func TestMapKeys(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want KeyChord
	}{
		{"enter", []string{"Enter"}, KeyChord{Keys: kb.Enter}},
		{"ctrl enter", []string{"ctrl", "enter"}, KeyChord{Keys: kb.Enter, Modifiers: []input.Modifier{input.ModifierCtrl}}},
		{"cmd a", []string{"CMD", "a"}, KeyChord{Keys: "a", Modifiers: []input.Modifier{input.ModifierMeta}}},
		{"option aliases alt", []string{"option", "x"}, KeyChord{Keys: "x", Modifiers: []input.Modifier{input.ModifierAlt}}},
		{"space", []string{"space"}, KeyChord{Keys: " "}},
		{"esc", []string{"esc"}, KeyChord{Keys: kb.Escape}},
		{"arrow", []string{"arrowdown"}, KeyChord{Keys: kb.ArrowDown}},
		{"slash", []string{"/"}, KeyChord{Keys: "/"}},
		{"only modifiers", []string{"ctrl", "shift"}, KeyChord{Keys: kb.Shift, Modifiers: []input.Modifier{input.ModifierCtrl}}},
		{"unknown passes through", []string{"F5"}, KeyChord{Keys: "F5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapKeys(tt.keys))
		})
	}
}

func TestMapKeys_Empty(t *testing.T) {
	assert.Equal(t, KeyChord{}, MapKeys(nil))
}
