//go:build windows

package ui

import (
	"fmt"
	"image"

	"github.com/lxn/walk"

	"LongScreenShot/arrange"
)

// ArrangeWindow は並べ替えキャンバスを表示するウィンドウです。
// ドラッグで移動、右クリックで削除します。閉じても破棄せず隠すだけです。
type ArrangeWindow struct {
	*walk.MainWindow
	canvas *arrange.Canvas
	view   *walk.CustomWidget
	bg     *walk.SolidColorBrush

	bitmaps  map[arrange.ItemID]*walk.Bitmap
	dragging bool
	drag     arrange.ItemID
	last     image.Point
	disposed bool
}

// NewArrangeWindow はキャンバスのウィンドウを作成します。onExport は「書き出し」で呼ばれます。
func NewArrangeWindow(canvas *arrange.Canvas, onExport func(owner walk.Form)) (*ArrangeWindow, error) {
	aw := &ArrangeWindow{canvas: canvas, bitmaps: make(map[arrange.ItemID]*walk.Bitmap)}

	var err error
	if aw.MainWindow, err = walk.NewMainWindow(); err != nil {
		return nil, fmt.Errorf("create canvas window: %w", err)
	}
	aw.SetTitle("キャンバス")
	aw.SetLayout(walk.NewVBoxLayout())
	aw.SetSize(walk.Size{Width: 900, Height: 700})

	if aw.bg, err = walk.NewSolidColorBrush(walk.RGB(0x1e, 0x1e, 0x1e)); err != nil {
		return nil, err
	}
	if aw.view, err = walk.NewCustomWidgetPixels(aw, 0, aw.paint); err != nil {
		return nil, fmt.Errorf("create canvas view: %w", err)
	}
	aw.view.SetClearsBackground(true)
	aw.view.SetInvalidatesOnResize(true)
	aw.view.MouseDown().Attach(aw.mouseDown)
	aw.view.MouseMove().Attach(aw.mouseMove)
	aw.view.MouseUp().Attach(func(x, y int, button walk.MouseButton) { aw.dragging = false })

	comp, _ := walk.NewComposite(aw)
	comp.SetLayout(walk.NewHBoxLayout())
	hint, _ := walk.NewLabel(comp)
	hint.SetText("ドラッグで移動・右クリックで削除")
	_, _ = walk.NewHSpacer(comp)
	exportBtn, _ := walk.NewPushButton(comp)
	exportBtn.SetText("画像として書き出し...")
	exportBtn.Clicked().Attach(func() { onExport(aw) })
	clearBtn, _ := walk.NewPushButton(comp)
	clearBtn.SetText("すべて消去")
	clearBtn.Clicked().Attach(func() {
		aw.canvas.Clear()
		aw.Refresh()
	})

	aw.Closing().Attach(func(canceled *bool, reason walk.CloseReason) {
		if aw.disposed {
			return
		}
		*canceled = true
		aw.SetVisible(false)
	})
	return aw, nil
}

// Refresh はキャンバスの内容を描き直します。取り除かれた画像のビットマップは破棄します。
func (aw *ArrangeWindow) Refresh() {
	live := make(map[arrange.ItemID]bool, aw.canvas.Len())
	for _, it := range aw.canvas.Items() {
		live[it.ID] = true
	}
	for id, bmp := range aw.bitmaps {
		if !live[id] {
			bmp.Dispose()
			delete(aw.bitmaps, id)
		}
	}
	aw.view.Invalidate()
}

// Dispose はウィンドウとビットマップを破棄します。
func (aw *ArrangeWindow) Dispose() {
	aw.disposed = true
	for id, bmp := range aw.bitmaps {
		bmp.Dispose()
		delete(aw.bitmaps, id)
	}
	aw.bg.Dispose()
	aw.MainWindow.Dispose()
}

func (aw *ArrangeWindow) paint(c *walk.Canvas, updateBounds walk.Rectangle) error {
	if err := c.FillRectanglePixels(aw.bg, updateBounds); err != nil {
		return err
	}
	for _, it := range aw.canvas.Items() {
		bmp, err := aw.bitmap(it)
		if err != nil {
			return err
		}
		if err := c.DrawImagePixels(bmp, walk.Point{X: it.Pos.X, Y: it.Pos.Y}); err != nil {
			return err
		}
	}
	return nil
}

func (aw *ArrangeWindow) bitmap(it arrange.Item) (*walk.Bitmap, error) {
	if bmp, ok := aw.bitmaps[it.ID]; ok {
		return bmp, nil
	}
	bmp, err := walk.NewBitmapFromImageForDPI(it.Thumb, aw.view.DPI())
	if err != nil {
		return nil, fmt.Errorf("thumbnail bitmap: %w", err)
	}
	aw.bitmaps[it.ID] = bmp
	return bmp, nil
}

func (aw *ArrangeWindow) mouseDown(x, y int, button walk.MouseButton) {
	p := image.Pt(x, y)
	id, ok := aw.canvas.ItemAt(p)
	if !ok {
		return
	}
	switch button {
	case walk.RightButton:
		if err := aw.canvas.Remove(id); err == nil {
			aw.Refresh()
		}
	case walk.LeftButton:
		aw.dragging, aw.drag, aw.last = true, id, p
	}
}

func (aw *ArrangeWindow) mouseMove(x, y int, button walk.MouseButton) {
	if !aw.dragging {
		return
	}
	p := image.Pt(x, y)
	d := p.Sub(aw.last)
	if err := aw.canvas.Move(aw.drag, d.X, d.Y); err != nil {
		aw.dragging = false
		return
	}
	aw.last = p
	aw.view.Invalidate()
}
