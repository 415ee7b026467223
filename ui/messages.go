//go:build windows

package ui

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/lxn/walk"
	"github.com/lxn/win"
)

// report はエラーを種類に応じたメッセージボックスで表示します。
func report(owner walk.Form, err error) {
	if err == nil {
		return
	}
	title, text := messageFor(err)
	style := walk.MsgBoxOK
	switch SeverityOf(err) {
	case SeverityInfo:
		style |= walk.MsgBoxIconInformation
	case SeverityWarning:
		style |= walk.MsgBoxIconWarning
	default:
		style |= walk.MsgBoxIconError
	}
	walk.MsgBox(owner, title, text, style)
}

// ShowError はウィンドウが無いときのエラーメッセージです。
func ShowError(msg string) {
	title, _ := syscall.UTF16PtrFromString("エラー")
	text, _ := syscall.UTF16PtrFromString(msg)
	win.MessageBox(0, text, title, win.MB_OK|win.MB_ICONERROR)
}

// showInfo は情報メッセージをメッセージボックスで表示します。
func showInfo(owner walk.Form, title, msg string) {
	walk.MsgBox(owner, title, msg, walk.MsgBoxOK|walk.MsgBoxIconInformation)
}

// showConfirm は「はい」「いいえ」の確認メッセージを表示し、「はい」なら true を返します。
func showConfirm(owner walk.Form, title, msg string) bool {
	return walk.MsgBox(owner, title, msg, walk.MsgBoxYesNo|walk.MsgBoxIconQuestion) == win.IDYES
}

// isDirEmpty は指定フォルダが空（ファイル・サブフォルダが無い）場合に true を返します。
func isDirEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return true // 読めない場合は空とみなす
	}
	return len(entries) == 0
}

// emptyDir は指定フォルダ内のすべてのファイルとサブフォルダを削除します。フォルダ自体は削除しません。
func emptyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
