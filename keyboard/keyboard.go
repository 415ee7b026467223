// Package keyboard は自動キャプチャ中に対象ウィンドウへ送るキー操作（例: "PageDown", "Ctrl+End"）を扱います。
package keyboard

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported はこの OS ではキー送信ができないことを表します。
var ErrUnsupported = errors.New("key injection is not supported on this platform")

// Modifier は修飾キーです。
type Modifier int

const (
	// Ctrl は Ctrl キーです。
	Ctrl Modifier = iota
	// Alt は Alt キーです。
	Alt
	// Shift は Shift キーです。
	Shift
	// Win は Windows キーです。
	Win
)

// String は "Ctrl" などの表示名を返します。
func (m Modifier) String() string {
	switch m {
	case Ctrl:
		return "Ctrl"
	case Alt:
		return "Alt"
	case Shift:
		return "Shift"
	default:
		return "Win"
	}
}

// Combo は修飾キーとメインキー1つの組み合わせです。
type Combo struct {
	Modifiers []Modifier
	Key       string // 大文字に正規化したキー名（"PAGEDOWN", "A" など）
}

// Empty はキーが無い場合に true を返します。
func (c Combo) Empty() bool { return c.Key == "" }

// String は "Ctrl+PageDown" の形式で返します。Parse で読み戻せます。
func (c Combo) String() string {
	parts := make([]string, 0, len(c.Modifiers)+1)
	for _, m := range c.Modifiers {
		parts = append(parts, m.String())
	}
	return strings.Join(append(parts, c.Key), "+")
}

// Parse はキー操作文字列を解析します。空文字列は空の Combo です。
func Parse(keyOperation string) (Combo, error) {
	keyOperation = strings.TrimSpace(keyOperation)
	if keyOperation == "" {
		return Combo{}, nil
	}
	parts := strings.Split(keyOperation, "+")
	var c Combo
	for i, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			return Combo{}, fmt.Errorf("parse key %q: empty part", keyOperation)
		}
		if i == len(parts)-1 {
			c.Key = p
			break
		}
		switch p {
		case "CTRL", "CONTROL":
			c.Modifiers = append(c.Modifiers, Ctrl)
		case "ALT":
			c.Modifiers = append(c.Modifiers, Alt)
		case "SHIFT":
			c.Modifiers = append(c.Modifiers, Shift)
		case "WIN":
			c.Modifiers = append(c.Modifiers, Win)
		default:
			return Combo{}, fmt.Errorf("parse key %q: unknown modifier %q", keyOperation, p)
		}
	}
	return c, nil
}

// Scroller は撮影ごとに Combo を送る detector.Scroller 互換の値です。
type Scroller struct {
	Combo Combo
}

// Scroll はキーを1回送信します。
func (s Scroller) Scroll() error {
	return Send(s.Combo)
}
