// Package overlay は選択枠（移動・リサイズ可能な半透明の矩形）の幾何と操作状態を扱います。
// 描画やイベント配送には依存しません。
package overlay

import (
	"image"
	"sync"

	"LongScreenShot/capture"
)

const (
	// DefaultMinSize はリサイズ時の幅・高さの下限です。
	DefaultMinSize = 100
	// DefaultHandleSize は右下のリサイズハンドルの一辺です。
	DefaultHandleSize = 15
)

// Mode は操作状態です。
type Mode int

const (
	// Idle は何も操作していない状態です。
	Idle Mode = iota
	// Dragging は枠を移動している状態です。
	Dragging
	// Resizing は右下のハンドルで大きさを変えている状態です。
	Resizing
)

// String はログ用の名前を返します。
func (m Mode) String() string {
	switch m {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// Part はポインタ直下にある要素です。
type Part int

const (
	// PartNone は枠の外です。
	PartNone Part = iota
	// PartBody はハンドル以外の枠の内側です。
	PartBody
	// PartHandle は右下のリサイズハンドルです。
	PartHandle
)

// Box は選択枠の状態です。幾何はキャプチャ対象の唯一の情報源で、
// UI スレッドから更新されキャプチャ goroutine から読まれます。
type Box struct {
	mu         sync.RWMutex
	rect       image.Rectangle
	mode       Mode
	offset     image.Point // ドラッグ開始時の枠内ポインタ位置
	startSize  image.Point // リサイズ開始時の幅・高さ
	startPtr   image.Point
	minSize    int
	handleSize int
}

// Option は Box の設定です。
type Option func(*Box)

// WithMinSize はリサイズの下限を設定します。
func WithMinSize(n int) Option {
	return func(b *Box) {
		if n > 0 {
			b.minSize = n
		}
	}
}

// WithHandleSize はリサイズハンドルの大きさを設定します。
func WithHandleSize(n int) Option {
	return func(b *Box) {
		if n > 0 {
			b.handleSize = n
		}
	}
}

// New は初期範囲 r から Box を作成します。
func New(r capture.Region, opts ...Option) *Box {
	b := &Box{rect: r.Rect().Canon(), minSize: DefaultMinSize, handleSize: DefaultHandleSize}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Geometry は現在の範囲を返します。
func (b *Box) Geometry() capture.Region {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return capture.RegionFromRect(b.rect)
}

// Bounds は現在の範囲を image.Rectangle で返します。
func (b *Box) Bounds() image.Rectangle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rect
}

// Mode は現在の操作状態を返します。
func (b *Box) Mode() Mode {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mode
}

// MinSize はリサイズの下限を返します。
func (b *Box) MinSize() int { return b.minSize }

// HandleRect はリサイズハンドルの範囲（絶対座標）を返します。
func (b *Box) HandleRect() image.Rectangle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handleRect()
}

func (b *Box) handleRect() image.Rectangle {
	br := b.rect.Max
	return image.Rect(br.X-b.handleSize, br.Y-b.handleSize, br.X, br.Y).Intersect(b.rect)
}

// HitTest は p の最前面にある要素を返します。ハンドルは枠の内側にあるので先に判定します。
func (b *Box) HitTest(p image.Point) Part {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.hitTest(p)
}

func (b *Box) hitTest(p image.Point) Part {
	switch {
	case p.In(b.handleRect()):
		return PartHandle
	case p.In(b.rect):
		return PartBody
	default:
		return PartNone
	}
}

// Press はボタン押下を処理し、遷移後の状態を返します。
// ハンドル上なら Resizing、それ以外の枠内なら Dragging になります。
func (b *Box) Press(p image.Point) Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mode != Idle {
		return b.mode
	}
	switch b.hitTest(p) {
	case PartHandle:
		b.mode = Resizing
		b.startSize = b.rect.Size()
		b.startPtr = p
	case PartBody:
		b.mode = Dragging
		b.offset = p.Sub(b.rect.Min)
	}
	return b.mode
}

// Motion はポインタ移動を処理し、範囲が変わったら true を返します。
func (b *Box) Motion(p image.Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.rect
	switch b.mode {
	case Dragging:
		topLeft := p.Sub(b.offset)
		b.rect = image.Rectangle{Min: topLeft, Max: topLeft.Add(old.Size())}
	case Resizing:
		d := p.Sub(b.startPtr)
		w := max(b.minSize, b.startSize.X+d.X)
		h := max(b.minSize, b.startSize.Y+d.Y)
		b.rect.Max = b.rect.Min.Add(image.Pt(w, h))
	default:
		return false
	}
	return b.rect != old
}

// Release はボタン解放を処理して Idle に戻します。
func (b *Box) Release() {
	b.mu.Lock()
	b.mode = Idle
	b.mu.Unlock()
}
