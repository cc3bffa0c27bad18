//go:build linux

package input

import "golang.design/x/hotkey"

// platformModifiers maps canonical modifier names to X11 masks
func platformModifiers() map[string]hotkey.Modifier {
	return map[string]hotkey.Modifier{
		"ctrl":  hotkey.ModCtrl,
		"shift": hotkey.ModShift,
		"alt":   hotkey.Mod1,
		"super": hotkey.Mod4,
	}
}
