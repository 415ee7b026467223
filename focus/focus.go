// Package focus は自動キャプチャの前に対象ウィンドウを前面へ出します。
package focus

import (
	"errors"
	"fmt"
)

// ErrNotFound は指定したタイトルのウィンドウが無いことを表します。
var ErrNotFound = errors.New("window not found")

// Activate は title に完全一致する最初の表示中ウィンドウを前面にします。空のタイトルは何もしません。
func Activate(title string) error {
	if title == "" {
		return nil
	}
	if !activate(title) {
		return fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	return nil
}

// Titles は表示されているトップレベルウィンドウのタイトル一覧を返します。
func Titles() []string {
	return titles()
}
