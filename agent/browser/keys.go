package browser

import (
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp/kb"
)

// cuaKeys maps computer-use key names to chromedp key values.
var cuaKeys = map[string]string{
	"/":          "/",
	"\\":         "\\",
	"alt":        kb.Alt,
	"arrowdown":  kb.ArrowDown,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"arrowup":    kb.ArrowUp,
	"backspace":  kb.Backspace,
	"capslock":   kb.CapsLock,
	"cmd":        kb.Meta,
	"ctrl":       kb.Control,
	"delete":     kb.Delete,
	"end":        kb.End,
	"enter":      kb.Enter,
	"esc":        kb.Escape,
	"home":       kb.Home,
	"insert":     kb.Insert,
	"option":     kb.Alt,
	"pagedown":   kb.PageDown,
	"pageup":     kb.PageUp,
	"shift":      kb.Shift,
	"space":      " ",
	"super":      kb.Meta,
	"tab":        kb.Tab,
	"win":        kb.Meta,
}

var modifierKeys = map[string]input.Modifier{
	kb.Alt:     input.ModifierAlt,
	kb.Control: input.ModifierCtrl,
	kb.Meta:    input.ModifierMeta,
	kb.Shift:   input.ModifierShift,
}

// KeyChord is a key pressed while holding Modifiers.
type KeyChord struct {
	Keys      string
	Modifiers []input.Modifier
}

// MapKeys converts a CUA style key list, e.g. ["ctrl", "a"], into a chord.
// Names are case-insensitive; unknown names pass through unchanged. A list made
// only of modifiers presses the last one while holding the others.
func MapKeys(keys []string) KeyChord {
	var chord KeyChord
	var mods []string
	var plain strings.Builder

	for _, k := range keys {
		mapped, ok := cuaKeys[strings.ToLower(k)]
		if !ok {
			mapped = k
		}
		if _, isMod := modifierKeys[mapped]; isMod {
			mods = append(mods, mapped)
			continue
		}
		plain.WriteString(mapped)
	}

	if plain.Len() == 0 && len(mods) > 0 {
		chord.Keys = mods[len(mods)-1]
		mods = mods[:len(mods)-1]
	} else {
		chord.Keys = plain.String()
	}
	for _, m := range mods {
		chord.Modifiers = append(chord.Modifiers, modifierKeys[m])
	}
	return chord
}
