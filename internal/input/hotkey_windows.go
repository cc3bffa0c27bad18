//go:build windows

package input

import "golang.design/x/hotkey"

// platformModifiers maps canonical modifier names to Windows modifiers
func platformModifiers() map[string]hotkey.Modifier {
	return map[string]hotkey.Modifier{
		"ctrl":  hotkey.ModCtrl,
		"shift": hotkey.ModShift,
		"alt":   hotkey.ModAlt,
		"super": hotkey.ModWin,
	}
}
