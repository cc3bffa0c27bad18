//go:build darwin

package input

import "golang.design/x/hotkey"

// platformModifiers maps canonical modifier names to macOS modifiers
func platformModifiers() map[string]hotkey.Modifier {
	return map[string]hotkey.Modifier{
		"ctrl":  hotkey.ModCtrl,
		"shift": hotkey.ModShift,
		"alt":   hotkey.ModOption,
		"super": hotkey.ModCmd,
	}
}
