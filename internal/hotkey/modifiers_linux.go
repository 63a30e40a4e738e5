//go:build linux

package hotkey

import (
	"golang.design/x/hotkey"

	"ttsloop/internal/config"
)

// X11: Alt = Mod1, Super = Mod4.
var modifierMap = map[config.Modifier]hotkey.Modifier{
	config.ModCtrl:  hotkey.ModCtrl,
	config.ModShift: hotkey.ModShift,
	config.ModAlt:   hotkey.Mod1,
	config.ModSuper: hotkey.Mod4,
}
