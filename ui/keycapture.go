//go:build windows

package ui

import (
	"strings"

	"github.com/lxn/walk"

	"LongScreenShot/keyboard"
)

// walk の Key.String() を keyboard.Send が受け付ける名前にそろえる
var keyNames = map[string]string{
	"Return": "ENTER",
	"Right":  "ARROWRIGHT",
	"Left":   "ARROWLEFT",
	"Up":     "ARROWUP",
	"Down":   "ARROWDOWN",
	"Next":   "PAGEDOWN",
	"Prior":  "PAGEUP",
}

// comboFor は、現在押されている修飾キーと押されたキーから
// スクロールキー欄に設定する組み合わせを作ります。修飾キーだけの場合は false です。
func comboFor(mod walk.Modifiers, key walk.Key) (keyboard.Combo, bool) {
	if isModifierOnly(key) {
		return keyboard.Combo{}, false
	}
	name := key.String()
	if d, ok := keyNames[name]; ok {
		name = d
	} else {
		name = strings.ToUpper(name)
	}
	var c keyboard.Combo
	if mod&walk.ModControl != 0 {
		c.Modifiers = append(c.Modifiers, keyboard.Ctrl)
	}
	if mod&walk.ModAlt != 0 {
		c.Modifiers = append(c.Modifiers, keyboard.Alt)
	}
	if mod&walk.ModShift != 0 {
		c.Modifiers = append(c.Modifiers, keyboard.Shift)
	}
	c.Key = name
	return c, true
}

func isModifierOnly(key walk.Key) bool {
	switch key {
	case walk.KeyShift, walk.KeyControl, walk.KeyAlt,
		walk.KeyLShift, walk.KeyRShift, walk.KeyLControl, walk.KeyRControl,
		walk.KeyLAlt, walk.KeyRAlt,
		walk.KeyLWin, walk.KeyRWin:
		return true
	}
	return false
}
