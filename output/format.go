package output

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat は保存先の拡張子に対応する形式が無いことを表します。
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format は保存形式です。
type Format int

const (
	// PNG は既定の形式です。
	PNG Format = iota
	// JPEG は品質 85 で保存します。
	JPEG
	// PDF は画像1枚を1ページにします。
	PDF
)

const defaultJpegQuality = 85

// String は形式名を返します。
func (f Format) String() string {
	switch f {
	case JPEG:
		return "jpeg"
	case PDF:
		return "pdf"
	default:
		return "png"
	}
}

// Ext は形式の標準の拡張子です。
func (f Format) Ext() string {
	switch f {
	case JPEG:
		return ".jpg"
	case PDF:
		return ".pdf"
	default:
		return ".png"
	}
}

// FormatFor は拡張子から形式を判定します。拡張子が無ければ PNG です。
func FormatFor(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case "", ".png":
		return PNG, nil
	case ".jpg", ".jpeg":
		return JPEG, nil
	case ".pdf":
		return PDF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Encode は img を形式 f で w に書き込みます。PDF のタイトルは title です。
func Encode(w io.Writer, f Format, title string, img image.Image) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case JPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: defaultJpegQuality})
	case PDF:
		return WritePDF(w, title, img)
	default:
		return ErrUnsupportedFormat
	}
}

// Save は拡張子に応じた形式で img を path に保存します。拡張子が無ければ .png を付けます。
// 保存したパスを返します。失敗した場合は書きかけのファイルを削除します。
func Save(path string, img image.Image) (string, error) {
	f, err := FormatFor(path)
	if err != nil {
		return "", err
	}
	if filepath.Ext(path) == "" {
		path += f.Ext()
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := writeFile(path, func(w io.Writer) error { return Encode(w, f, title, img) }); err != nil {
		return "", err
	}
	return path, nil
}

// SavePNG は img を PNG で path に保存します。
func SavePNG(path string, img image.Image) error {
	return writeFile(path, func(w io.Writer) error { return png.Encode(w, img) })
}

func writeFile(path string, encode func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(file); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
