package output

import (
	"fmt"
	"image"
	"path/filepath"
)

// FrameName は index 番目（1 始まり）のフレームのファイル名です。
func FrameName(index int) string {
	return fmt.Sprintf("frame_%05d.png", index)
}

// SaveFrames は画像を指定フォルダに連番の PNG として保存し、ファイルパスを返します。
// 途中で失敗した場合は、それまでに保存したパスとエラーを返します。
func SaveFrames(dir string, imgs []image.Image) ([]string, error) {
	paths := make([]string, 0, len(imgs))
	for i, img := range imgs {
		path := filepath.Join(dir, FrameName(i+1))
		if err := SavePNG(path, img); err != nil {
			return paths, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExportFrames はフレームを連番 PNG で保存し、同じフォルダに全フレームをまとめた PDF も作ります。
// PDF のパスを返します。
func ExportFrames(dir, title string, imgs []image.Image) ([]string, string, error) {
	paths, err := SaveFrames(dir, imgs)
	if err != nil {
		return paths, "", err
	}
	if len(imgs) == 0 {
		return paths, "", nil
	}
	if title == "" {
		title = "frames"
	}
	pdfPath := filepath.Join(dir, title+".pdf")
	if err := SavePDF(pdfPath, title, imgs...); err != nil {
		return paths, "", err
	}
	return paths, pdfPath, nil
}
