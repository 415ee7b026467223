// Package output は画像のファイル保存（PNG / JPEG / PDF）とクリップボードへのコピーを行います。
package output

import (
	"image"
	"log/slog"
	"time"
)

// Picker は保存先を利用者に選ばせます。キャンセルされた場合は ok=false を返します。
type Picker interface {
	PickSavePath(defaultName string) (path string, ok bool, err error)
}

// PickerFunc は関数を Picker として使うためのものです。
type PickerFunc func(defaultName string) (string, bool, error)

// PickSavePath は f を呼びます。
func (f PickerFunc) PickSavePath(defaultName string) (string, bool, error) { return f(defaultName) }

// DefaultName は保存ダイアログの初期ファイル名です。
func DefaultName(t time.Time) string {
	return "longshot_" + t.Format("2006-01-02_15-04-05") + ".png"
}

// Export は保存先を選ばせて img を保存し、保存したパスを返します。
// 利用者がキャンセルした場合は何も書かずに ("", nil) を返します。
func Export(img image.Image, picker Picker, defaultName string) (string, error) {
	path, ok, err := picker.PickSavePath(defaultName)
	if err != nil {
		return "", err
	}
	if !ok || path == "" {
		slog.Info("保存をキャンセルしました")
		return "", nil
	}
	path, err = Save(path, img)
	if err != nil {
		return "", err
	}
	b := img.Bounds()
	slog.Info("画像を保存しました", "path", path, "width", b.Dx(), "height", b.Dy())
	return path, nil
}
