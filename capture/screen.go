package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ErrNoDisplay は有効なディスプレイが無いことを表します。
var ErrNoDisplay = errors.New("no active displays")

// DisplayScreen は kbinani/screenshot で全ディスプレイを撮影します。
type DisplayScreen struct{}

// Screenshot は全ディスプレイを含む仮想スクリーンを撮影します。
func (DisplayScreen) Screenshot() (*image.RGBA, error) {
	bounds, err := VirtualBounds()
	if err != nil {
		return nil, err
	}
	img, err := screenshot.CaptureRect(bounds)
	if err != nil {
		return nil, fmt.Errorf("capture %v: %w", bounds, err)
	}
	// CaptureRect は (0,0) 始まりの画像を返すので絶対座標へ移す
	img.Rect = bounds
	return img, nil
}

// VirtualBounds は全ディスプレイの外接矩形を返します。
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, ErrNoDisplay
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}
