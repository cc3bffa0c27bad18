package input

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Binding is a parsed hotkey such as "ctrl+shift+space"
type Binding struct {
	Modifiers []string
	Key       string
}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"shift":   "shift",
	"alt":     "alt",
	"option":  "alt",
	"super":   "super",
	"cmd":     "super",
	"command": "super",
	"win":     "super",
}

var keyAliases = map[string]string{
	"enter": "return",
	"esc":   "escape",
}

// ParseBinding parses a "+"-separated hotkey. Modifiers are canonicalized
// and sorted; exactly one non-modifier key is required.
func ParseBinding(s string) (Binding, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Binding{}, fmt.Errorf("empty hotkey")
	}

	var b Binding
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			return Binding{}, fmt.Errorf("empty key in hotkey %q", s)
		}
		if mod, ok := modifierAliases[part]; ok {
			if !seen[mod] {
				seen[mod] = true
				b.Modifiers = append(b.Modifiers, mod)
			}
			continue
		}
		if b.Key != "" {
			return Binding{}, fmt.Errorf("multiple keys in hotkey %q", s)
		}
		if alias, ok := keyAliases[part]; ok {
			part = alias
		}
		if _, ok := keyCodes[part]; !ok {
			return Binding{}, fmt.Errorf("unknown key: %s", part)
		}
		b.Key = part
	}

	if b.Key == "" {
		return Binding{}, fmt.Errorf("no key in hotkey %q", s)
	}
	sort.Strings(b.Modifiers)
	return b, nil
}

func (b Binding) String() string {
	return strings.Join(append(append([]string(nil), b.Modifiers...), b.Key), "+")
}

// Mode selects how key presses map to recording actions
type Mode string

const (
	// ModeToggle starts on one press and stops on the next
	ModeToggle Mode = "toggle"
	// ModeHold records while the key is held down
	ModeHold Mode = "hold"
)

// ParseMode accepts "toggle", "hold" or "" for toggle
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeToggle:
		return ModeToggle, nil
	case ModeHold:
		return ModeHold, nil
	default:
		return "", fmt.Errorf("unknown hotkey mode: %s", s)
	}
}

// Action is what the recorder should do in response to a key event
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	default:
		return "none"
	}
}

// Controller turns key transitions into recording actions
type Controller struct {
	mode Mode

	mu     sync.Mutex
	active bool
	down   bool
}

// NewController creates an idle controller
func NewController(mode Mode) *Controller {
	return &Controller{mode: mode}
}

// Press handles a key down. Auto-repeated presses while held are ignored.
func (c *Controller) Press() Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.down {
		return ActionNone
	}
	c.down = true

	switch {
	case c.mode == ModeHold && !c.active:
		c.active = true
		return ActionStart
	case c.mode == ModeToggle:
		c.active = !c.active
		if c.active {
			return ActionStart
		}
		return ActionStop
	}
	return ActionNone
}

// Release handles a key up
func (c *Controller) Release() Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.down = false
	if c.mode == ModeHold && c.active {
		c.active = false
		return ActionStop
	}
	return ActionNone
}

// Active reports whether the last action was a start
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Reset marks the recording as stopped by something other than the key
func (c *Controller) Reset() {
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}
