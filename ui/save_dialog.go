//go:build windows

package ui

import (
	"path/filepath"

	"github.com/lxn/walk"
)

// フィルタの並びと拡張子を対応させる
var saveExts = []string{".png", ".pdf", ".jpg"}

const saveFilter = "PNG 画像 (*.png)|*.png|PDF (*.pdf)|*.pdf|JPEG 画像 (*.jpg)|*.jpg"

// savePicker は walk の保存ダイアログで保存先を選ばせる output.Picker です。
type savePicker struct {
	owner walk.Form
	title string
	dir   string
}

// PickSavePath は保存ダイアログを表示します。拡張子が無ければ選んだ種類の拡張子を付けます。
func (p savePicker) PickSavePath(defaultName string) (string, bool, error) {
	dlg := walk.FileDialog{
		Title:          p.title,
		Filter:         saveFilter,
		FilePath:       defaultName,
		InitialDirPath: p.dir,
	}
	ok, err := dlg.ShowSave(p.owner)
	if err != nil || !ok {
		return "", false, err
	}
	path := dlg.FilePath
	if filepath.Ext(path) == "" && dlg.FilterIndex >= 1 && dlg.FilterIndex <= len(saveExts) {
		path += saveExts[dlg.FilterIndex-1]
	}
	return path, true, nil
}

// pickFolder はフォルダ選択ダイアログを表示します。キャンセル時は空文字列です。
func pickFolder(owner walk.Form, title, dir string) (string, error) {
	dlg := walk.FileDialog{Title: title, InitialDirPath: dir}
	ok, err := dlg.ShowBrowseFolder(owner)
	if err != nil || !ok {
		return "", err
	}
	return dlg.FilePath, nil
}
