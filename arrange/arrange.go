// Package arrange は縮小表示した画像を自由に配置し、
// 配置どおりに原寸で合成する並べ替えキャンバスです。
package arrange

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

var (
	// ErrEmptyCanvas は配置された画像が無いことを表します。
	ErrEmptyCanvas = errors.New("canvas is empty")
	// ErrUnknownItem は存在しない ItemID を表します。
	ErrUnknownItem = errors.New("unknown canvas item")
)

const (
	// DefaultScale はサムネイルの縮小率の既定値です。
	DefaultScale = 0.5
)

// DefaultAnchor は新しい画像を置く位置（縮小座標）です。
var DefaultAnchor = image.Pt(50, 50)

// Background は書き出し時の背景色です。
var Background = color.RGBA{A: 255}

// ItemID はキャンバス上の画像の識別子です。削除後も再利用されません。
type ItemID int

// Item はキャンバス上の1枚です。Pos は縮小座標での左上位置です。
type Item struct {
	ID      ItemID
	FrameID int // 元のフレームの ID（フレーム以外から置いた場合は 0）
	Source  image.Image
	Thumb   *image.RGBA
	Pos     image.Point
}

// Bounds は縮小座標での表示範囲です。
func (it Item) Bounds() image.Rectangle {
	return it.Thumb.Bounds().Add(it.Pos)
}

// Placement は原寸座標での配置です。
type Placement struct {
	ID   ItemID
	Rect image.Rectangle
}

// Canvas は配置中の画像を所有します。並び順が重なり順（後ろほど手前）です。
type Canvas struct {
	scale  float64
	anchor image.Point

	mu     sync.RWMutex
	items  map[ItemID]*Item
	order  []ItemID
	nextID ItemID
}

// Option は Canvas の設定です。
type Option func(*Canvas)

// WithScale は縮小率を設定します。(0, 1] 以外は無視します。
func WithScale(s float64) Option {
	return func(c *Canvas) {
		if s > 0 && s <= 1 {
			c.scale = s
		}
	}
}

// WithAnchor は新しい画像を置く位置を設定します。
func WithAnchor(p image.Point) Option {
	return func(c *Canvas) { c.anchor = p }
}

// New は空のキャンバスを作成します。
func New(opts ...Option) *Canvas {
	c := &Canvas{
		scale:  DefaultScale,
		anchor: DefaultAnchor,
		items:  make(map[ItemID]*Item),
		nextID: 1,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Scale は縮小率を返します。
func (c *Canvas) Scale() float64 { return c.scale }

// Place は画像を既定位置に置きます。
func (c *Canvas) Place(img image.Image) ItemID {
	return c.PlaceAt(img, c.anchor)
}

// PlaceFrame はセッションのフレームを既定位置に置き、フレーム ID を記録します。
func (c *Canvas) PlaceFrame(frameID int, img image.Image) ItemID {
	id := c.PlaceAt(img, c.anchor)
	c.mu.Lock()
	c.items[id].FrameID = frameID
	c.mu.Unlock()
	return id
}

// PlaceAt は画像を縮小座標 pos に置きます。
func (c *Canvas) PlaceAt(img image.Image, pos image.Point) ItemID {
	thumb := Thumbnail(img, c.scale)

	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.items[id] = &Item{ID: id, Source: img, Thumb: thumb, Pos: pos}
	c.order = append(c.order, id)
	return id
}

// Move は画像を縮小座標で (dx, dy) だけ動かします。
func (c *Canvas) Move(id ItemID, dx, dy int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return ErrUnknownItem
	}
	it.Pos = it.Pos.Add(image.Pt(dx, dy))
	return nil
}

// Remove は画像をキャンバスから取り除きます。
func (c *Canvas) Remove(id ItemID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return ErrUnknownItem
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear はすべての画像を取り除きます。
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[ItemID]*Item)
	c.order = nil
}

// ItemAt は縮小座標 p を含む最も手前の画像を返します。
func (c *Canvas) ItemAt(p image.Point) (ItemID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.order) - 1; i >= 0; i-- {
		it := c.items[c.order[i]]
		if p.In(it.Bounds()) {
			return it.ID, true
		}
	}
	return 0, false
}

// Item は id の画像を返します。
func (c *Canvas) Item(id ItemID) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Items は重なり順のスナップショットを返します。
func (c *Canvas) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id])
	}
	return out
}

// Len は配置されている画像の数です。
func (c *Canvas) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Placements は各画像の原寸座標での範囲を重なり順で返します。
// 位置は縮小率で割って 0 方向に切り捨てます。
func (c *Canvas) Placements() []Placement {
	return c.placements(c.Items())
}

func (c *Canvas) placements(items []Item) []Placement {
	out := make([]Placement, 0, len(items))
	for _, it := range items {
		at := image.Pt(int(float64(it.Pos.X)/c.scale), int(float64(it.Pos.Y)/c.scale))
		out = append(out, Placement{ID: it.ID, Rect: image.Rectangle{Min: at, Max: at.Add(it.Source.Bounds().Size())}})
	}
	return out
}

// Export は配置どおりに原寸画像を合成します。
// 出力は全画像を囲む最小の矩形で、空いた部分は Background で塗ります。
func (c *Canvas) Export() (*image.RGBA, error) {
	items := c.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCanvas
	}
	places := c.placements(items)

	bbox := places[0].Rect
	for _, p := range places[1:] {
		bbox = bbox.Union(p.Rect)
	}
	out := image.NewRGBA(image.Rect(0, 0, bbox.Dx(), bbox.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	for i, it := range items {
		dst := places[i].Rect.Sub(bbox.Min)
		draw.Draw(out, dst, it.Source, it.Source.Bounds().Min, draw.Src)
	}
	return out, nil
}

// Thumbnail は img を scale 倍に縮小した画像を返します。各辺は最低 1 ピクセルです。
func Thumbnail(img image.Image, scale float64) *image.RGBA {
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
