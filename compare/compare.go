package compare

import (
	"errors"
	"fmt"
	"image"

	"github.com/corona10/goimagehash"
)

// ErrSizeMismatch は比較する2枚のサイズが異なることを表します。
var ErrSizeMismatch = errors.New("image size mismatch")

// DiffCount は2枚の画像の画素ごとの差の絶対値をグレースケールに変換し、
// noiseFloor を超える画素数を返します。
func DiffCount(a, b *image.RGBA, noiseFloor uint8) (int, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrSizeMismatch, ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}
	w, h := ab.Dx(), ab.Dy()
	count := 0
	for y := 0; y < h; y++ {
		pa := a.Pix[a.PixOffset(ab.Min.X, ab.Min.Y+y):]
		pb := b.Pix[b.PixOffset(bb.Min.X, bb.Min.Y+y):]
		for x := 0; x < w*4; x += 4 {
			if gray(absDiff(pa[x], pb[x]), absDiff(pa[x+1], pb[x+1]), absDiff(pa[x+2], pb[x+2])) > noiseFloor {
				count++
			}
		}
	}
	return count, nil
}

// gray は ITU-R BT.601 の重みで輝度を求めます（四捨五入）。
func gray(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// Hash は画像の差分ハッシュ（dHash）を返します。
func Hash(img image.Image) (*goimagehash.ImageHash, error) {
	return goimagehash.DifferenceHash(img)
}

// Same は hashes がすべて揃っていて一致するか返します。
func Same(hashes ...*goimagehash.ImageHash) bool {
	if len(hashes) < 2 {
		return false
	}
	for _, h := range hashes {
		if h == nil {
			return false
		}
	}
	for _, h := range hashes[1:] {
		d, err := hashes[0].Distance(h)
		if err != nil || d != 0 {
			return false
		}
	}
	return true
}
