//go:build windows

package keyboard

import (
	"fmt"

	"github.com/dacapoday/sendinput"
)

var modifierKeys = map[Modifier]sendinput.KeyCode{
	Ctrl:  sendinput.KEY_LCONTROL,
	Alt:   sendinput.KEY_LMENU,
	Shift: sendinput.KEY_LSHIFT,
	Win:   sendinput.KEY_LWIN,
}

// Send は Combo を1回送信します。空の Combo は何もしません。
func Send(c Combo) error {
	if c.Empty() {
		return nil
	}
	main := sendinput.Key(c.Key)
	if main == 0 && len(c.Key) == 1 {
		// 英字・数字は仮想キーコードが ASCII と同じ
		if k := c.Key[0]; (k >= 'A' && k <= 'Z') || (k >= '0' && k <= '9') {
			main = sendinput.KeyCode(k)
		}
	}
	if main == 0 {
		return fmt.Errorf("send key %s: unknown key", c)
	}

	mods := make([]sendinput.KeyCode, 0, len(c.Modifiers))
	for _, m := range c.Modifiers {
		mods = append(mods, modifierKeys[m])
	}
	// 修飾キーを押す
	for _, m := range mods {
		_ = sendinput.SendKeyboardInput(m, true)
	}
	defer releaseModifiers(mods)
	// メインキーを押して離す
	if err := sendinput.SendKeyboardInput(main, true); err != nil {
		return err
	}
	return sendinput.SendKeyboardInput(main, false)
}

// 修飾キーを離す（逆順）
func releaseModifiers(modifiers []sendinput.KeyCode) {
	for i := len(modifiers) - 1; i >= 0; i-- {
		_ = sendinput.SendKeyboardInput(modifiers[i], false)
	}
}
