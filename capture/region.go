package capture

import (
	"fmt"
	"image"
)

// Region はキャプチャ範囲（左上座標と幅・高さ）を表します。座標は仮想スクリーンの絶対座標です。
type Region struct {
	X, Y, Width, Height int
}

// RegionFromPoints は任意の2頂点から正規化した Region を返します。
// どちらの頂点から押し始めても同じ結果になります。
func RegionFromPoints(x1, y1, x2, y2 int) Region {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// RegionFromRect は image.Rectangle を Region に変換します。
func RegionFromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Corners は (x1, y1, x2, y2) を返します。
func (r Region) Corners() (x1, y1, x2, y2 int) {
	return r.X, r.Y, r.X + r.Width, r.Y + r.Height
}

// Rect は image.Rectangle 形式で範囲を返します。
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty は面積が 0 以下の場合に true を返します。
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// String は "幅x高さ+X+Y" 形式で返します。
func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
