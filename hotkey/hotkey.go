// Package hotkey delivers presses of a global key combination.
package hotkey

import (
	"fmt"
	"slices"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

const DefaultCombo = "ctrl+shift+space"

// Combo is a key with its required modifiers.
type Combo struct {
	Ctrl  bool
	Shift bool
	Key   string
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "ctrl")
	}
	if c.Shift {
		parts = append(parts, "shift")
	}
	return strings.Join(append(parts, c.Key), "+")
}

var keyNames = func() []string {
	names := []string{"space"}
	for c := 'a'; c <= 'z'; c++ {
		names = append(names, string(c))
	}
	for i := 1; i <= 12; i++ {
		names = append(names, fmt.Sprintf("f%d", i))
	}
	return names
}()

// ParseCombo parses combos like "ctrl+shift+space" or "ctrl+f9". At least
// one modifier is required except for function keys.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for _, p := range parts[:len(parts)-1] {
		switch strings.TrimSpace(p) {
		case "ctrl", "control":
			c.Ctrl = true
		case "shift":
			c.Shift = true
		default:
			return Combo{}, fmt.Errorf("hotkey %q: unsupported modifier %q", s, p)
		}
	}
	c.Key = strings.TrimSpace(parts[len(parts)-1])
	if !slices.Contains(keyNames, c.Key) {
		return Combo{}, fmt.Errorf("hotkey %q: unsupported key %q", s, c.Key)
	}
	if !c.Ctrl && !c.Shift && !c.isFunctionKey() {
		return Combo{}, fmt.Errorf("hotkey %q: needs ctrl or shift", s)
	}
	return c, nil
}

func (c Combo) isFunctionKey() bool {
	return len(c.Key) > 1 && c.Key[0] == 'f'
}
