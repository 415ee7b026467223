package ui

import (
	"errors"

	"LongScreenShot/arrange"
	"LongScreenShot/session"
	"LongScreenShot/stitch"
)

// Severity はメッセージボックスの種類です。
type Severity int

const (
	// SeverityError はエラーアイコンで表示します。
	SeverityError Severity = iota
	// SeverityWarning は警告アイコンで表示します。
	SeverityWarning
	// SeverityInfo は情報アイコンで表示します。
	SeverityInfo
)

// SeverityOf はエラーを利用者に見せるときの種類を決めます。
// 取り消すものが無いのは情報、書き出す画像が無いのは警告、それ以外はエラーです。
func SeverityOf(err error) Severity {
	switch {
	case errors.Is(err, session.ErrEmptyBuffer):
		return SeverityInfo
	case errors.Is(err, stitch.ErrEmptyInput), errors.Is(err, arrange.ErrEmptyCanvas):
		return SeverityWarning
	default:
		return SeverityError
	}
}

// messageFor は利用者向けの文言です。
func messageFor(err error) (title, text string) {
	switch {
	case errors.Is(err, session.ErrEmptyBuffer):
		return "取り消し", "取り消すキャプチャがありません。"
	case errors.Is(err, stitch.ErrEmptyInput):
		return "保存", "まだキャプチャがありません。"
	case errors.Is(err, arrange.ErrEmptyCanvas):
		return "書き出し", "キャンバスに画像がありません。"
	case errors.Is(err, session.ErrBusy):
		return "自動キャプチャ", "自動キャプチャは既に動いています。"
	default:
		return "エラー", err.Error()
	}
}
