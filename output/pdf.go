package output

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// 96 DPI を基準にピクセルを mm に変換します。
const pixelsPerInch = 96
const mmPerInch = 25.4

func pixelsToMm(pixels int) float64 {
	return float64(pixels) / pixelsPerInch * mmPerInch
}

// WritePDF は画像を1枚1ページの PDF として w に書き込みます。
// 各ページは画像と同じ大きさ（96 DPI 換算）になります。
// title はPDFのメタデータタイトルです。
func WritePDF(w io.Writer, title string, imgs ...image.Image) error {
	if len(imgs) == 0 {
		return errors.New("no images for pdf")
	}
	first := imgs[0].Bounds()
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pixelsToMm(first.Dx()), Ht: pixelsToMm(first.Dy())},
	})
	if title != "" {
		pdf.SetTitle(title, true) // true = UTF-8（日本語対応）
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	for i, img := range imgs {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return err
		}
		name := fmt.Sprintf("page%05d", i+1)
		pdf.RegisterImageOptionsReader(name, opt, &buf)

		b := img.Bounds()
		size := gofpdf.SizeType{Wd: pixelsToMm(b.Dx()), Ht: pixelsToMm(b.Dy())}
		pdf.AddPageFormat("P", size)
		pdf.ImageOptions(name, 0, 0, size.Wd, size.Ht, false, opt, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// SavePDF は画像を PDF にして path に保存します。
func SavePDF(path, title string, imgs ...image.Image) error {
	return writeFile(path, func(w io.Writer) error { return WritePDF(w, title, imgs...) })
}
