package input

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.design/x/hotkey"
)

var keyCodes = map[string]hotkey.Key{
	"space": hotkey.KeySpace, "return": hotkey.KeyReturn, "tab": hotkey.KeyTab, "escape": hotkey.KeyEscape,
	"a": hotkey.KeyA, "b": hotkey.KeyB, "c": hotkey.KeyC, "d": hotkey.KeyD, "e": hotkey.KeyE,
	"f": hotkey.KeyF, "g": hotkey.KeyG, "h": hotkey.KeyH, "i": hotkey.KeyI, "j": hotkey.KeyJ,
	"k": hotkey.KeyK, "l": hotkey.KeyL, "m": hotkey.KeyM, "n": hotkey.KeyN, "o": hotkey.KeyO,
	"p": hotkey.KeyP, "q": hotkey.KeyQ, "r": hotkey.KeyR, "s": hotkey.KeyS, "t": hotkey.KeyT,
	"u": hotkey.KeyU, "v": hotkey.KeyV, "w": hotkey.KeyW, "x": hotkey.KeyX, "y": hotkey.KeyY,
	"z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

// HotkeyManager registers a global hotkey and feeds its events through a
// Controller
type HotkeyManager struct {
	binding Binding
	ctrl    *Controller
	handler func(Action)
	logger  zerolog.Logger

	mu     sync.Mutex
	hk     *hotkey.Hotkey
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHotkeyManager parses binding; handler is called for every action
// other than ActionNone
func NewHotkeyManager(binding string, mode Mode, handler func(Action), logger zerolog.Logger) (*HotkeyManager, error) {
	b, err := ParseBinding(binding)
	if err != nil {
		return nil, fmt.Errorf("invalid hotkey: %w", err)
	}
	return &HotkeyManager{
		binding: b,
		ctrl:    NewController(mode),
		handler: handler,
		logger:  logger,
	}, nil
}

// Binding returns the parsed hotkey
func (h *HotkeyManager) Binding() Binding {
	return h.binding
}

// Controller exposes the press/release state
func (h *HotkeyManager) Controller() *Controller {
	return h.ctrl
}

// Start registers the hotkey and listens until ctx is done or Stop is called
func (h *HotkeyManager) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	mods := platformModifiers()
	var ms []hotkey.Modifier
	for _, m := range h.binding.Modifiers {
		mod, ok := mods[m]
		if !ok {
			return fmt.Errorf("modifier %s is not available on this platform", m)
		}
		ms = append(ms, mod)
	}

	hk := hotkey.New(ms, keyCodes[h.binding.Key])
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}
	h.hk = hk

	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	go h.listen(ctx, hk, h.done)

	h.logger.Info().Str("hotkey", h.binding.String()).Msg("hotkey registered")
	return nil
}

func (h *HotkeyManager) listen(ctx context.Context, hk *hotkey.Hotkey, done chan struct{}) {
	defer close(done)
	for {
		var a Action
		select {
		case <-ctx.Done():
			return
		case _, ok := <-hk.Keydown():
			if !ok {
				return
			}
			a = h.ctrl.Press()
		case _, ok := <-hk.Keyup():
			if !ok {
				return
			}
			a = h.ctrl.Release()
		}
		if a != ActionNone && h.handler != nil {
			h.handler(a)
		}
	}
}

// Stop unregisters the hotkey
func (h *HotkeyManager) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
	}
	if h.hk != nil {
		if err := h.hk.Unregister(); err != nil {
			h.logger.Warn().Err(err).Msg("failed to unregister hotkey")
		}
		h.hk = nil
	}
	if h.done != nil {
		select {
		case <-h.done:
		case <-time.After(100 * time.Millisecond):
		}
	}
}
