package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/image/draw"
)

// ErrCaptureFailed はキャプチャ1回分の失敗を表します。セッションの状態は変わりません。
var ErrCaptureFailed = errors.New("capture failed")

const (
	// DefaultSettleDelay はオーバーレイを隠してから撮影するまでの待ち時間です。
	DefaultSettleDelay = 300 * time.Millisecond
	// MaxSettleDelay を超える待ち時間は切り詰めます。
	MaxSettleDelay = time.Second
)

// Screen は全画面キャプチャを提供します。
// 返す画像の Bounds は仮想スクリーンの絶対座標でなければなりません。
type Screen interface {
	Screenshot() (*image.RGBA, error)
}

// Concealer は撮影中に選択枠を隠すためのものです。任意の goroutine から呼ばれます。
type Concealer interface {
	Hide()
	Show()
}

// Capturer は Region を1枚の画像として切り出します。
type Capturer struct {
	screen    Screen
	concealer Concealer
	settle    time.Duration
}

// Option は Capturer の設定です。
type Option func(*Capturer)

// WithConcealer は撮影前に隠す選択枠を設定します。
func WithConcealer(c Concealer) Option {
	return func(cp *Capturer) { cp.concealer = c }
}

// WithSettleDelay は隠してから撮影するまでの待ち時間を設定します。
func WithSettleDelay(d time.Duration) Option {
	return func(cp *Capturer) { cp.settle = clampSettle(d) }
}

// NewCapturer は Capturer を作成します。
func NewCapturer(screen Screen, opts ...Option) *Capturer {
	c := &Capturer{screen: screen, settle: DefaultSettleDelay}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Capture は全画面を撮影して region に切り抜いた画像を返します。
// 戻り値の Bounds は (0,0) 始まりです。
func (c *Capturer) Capture(ctx context.Context, region Region) (*image.RGBA, error) {
	if region.Empty() {
		return nil, fmt.Errorf("%w: empty region %s", ErrCaptureFailed, region)
	}
	if c.concealer != nil {
		c.concealer.Hide()
		defer c.concealer.Show()
	}
	if err := sleep(ctx, c.settle); err != nil {
		return nil, err
	}
	full, err := c.screen.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	img, err := Crop(full, region.Rect())
	if err != nil {
		return nil, err
	}
	slog.Debug("範囲を撮影しました", "region", region.String(), "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// Crop は img のうち rect と重なる部分を新しい画像にコピーします。
func Crop(img image.Image, rect image.Rectangle) (*image.RGBA, error) {
	r := rect.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("%w: region %v is outside screen %v", ErrCaptureFailed, rect, img.Bounds())
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out, nil
}

func clampSettle(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxSettleDelay {
		return MaxSettleDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
