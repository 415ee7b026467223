// Package stitch はキャプチャ順のフレームを縦に連結して1枚の長い画像にします。
package stitch

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ErrEmptyInput は連結するフレームが無いことを表します。
var ErrEmptyInput = errors.New("no frames to stitch")

// PadColor は幅の足りないフレームの右側を埋める色です。
var PadColor = color.RGBA{A: 255}

// Size は連結後の画像サイズ（最大幅 × 高さの合計）を返します。
func Size(frames []image.Image) image.Point {
	var p image.Point
	for _, f := range frames {
		b := f.Bounds()
		if b.Dx() > p.X {
			p.X = b.Dx()
		}
		p.Y += b.Dy()
	}
	return p
}

// Stitch はフレームを上から順に並べた画像を返します。
// 狭いフレームは左寄せで配置し、右側を PadColor で埋めます。
func Stitch(frames []image.Image) (*image.RGBA, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyInput
	}
	size := Size(frames)
	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.Draw(out, out.Bounds(), image.NewUniform(PadColor), image.Point{}, draw.Src)

	y := 0
	for _, f := range frames {
		b := f.Bounds()
		dst := image.Rect(0, y, b.Dx(), y+b.Dy())
		draw.Draw(out, dst, f, b.Min, draw.Src)
		y += b.Dy()
	}
	return out, nil
}
