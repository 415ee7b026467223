//go:build windows

package ui

import (
	"errors"
	"image"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"LongScreenShot/capture"
	"LongScreenShot/overlay"
)

const overlayClassName = "LongScreenShotOverlay"

var (
	overlayClassOnce sync.Once
	overlaysMu       sync.Mutex
	overlays         = map[win.HWND]*OverlayWindow{}
)

// OverlayWindow は選択枠を表示する最前面の半透明ウィンドウです。
// マウス操作は overlay.Box に渡し、枠の位置と大きさは Box に従います。
// capture.Concealer として撮影中に隠されます。
type OverlayWindow struct {
	box      *overlay.Box
	hwnd     win.HWND
	onChange func(capture.Region)
	close    sync.Once
}

// NewOverlayWindow は box の位置に選択枠ウィンドウを作成します。UI スレッドから呼ぶこと。
// onChange はドラッグ・リサイズが終わるたびに UI スレッドで呼ばれます。
func NewOverlayWindow(box *overlay.Box, onChange func(capture.Region)) (*OverlayWindow, error) {
	overlayClassOnce.Do(registerOverlayClass)

	g := box.Geometry()
	hwnd := win.CreateWindowEx(
		win.WS_EX_LAYERED|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(overlayClassName),
		nil,
		win.WS_POPUP,
		int32(g.X), int32(g.Y), int32(g.Width), int32(g.Height),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return nil, errors.New("create overlay window failed")
	}
	ow := &OverlayWindow{box: box, hwnd: hwnd, onChange: onChange}
	overlaysMu.Lock()
	overlays[hwnd] = ow
	overlaysMu.Unlock()

	setLayeredWindowAttributes(hwnd, 0, 110, lwaAlpha)
	win.ShowWindow(hwnd, win.SW_SHOWNOACTIVATE)
	return ow, nil
}

// Hide は枠を隠します。任意の goroutine から呼べます。
func (ow *OverlayWindow) Hide() { showWindowAsync(ow.hwnd, win.SW_HIDE) }

// Show は枠を再表示します。任意の goroutine から呼べます。
func (ow *OverlayWindow) Show() { showWindowAsync(ow.hwnd, win.SW_SHOWNOACTIVATE) }

// Close はウィンドウを破棄します。UI スレッドから呼ぶこと。
func (ow *OverlayWindow) Close() {
	ow.close.Do(func() { win.DestroyWindow(ow.hwnd) })
}

// sync はウィンドウを Box の現在の矩形に合わせます。
func (ow *OverlayWindow) sync() {
	g := ow.box.Geometry()
	win.SetWindowPos(ow.hwnd, win.HWND_TOPMOST, int32(g.X), int32(g.Y), int32(g.Width), int32(g.Height), win.SWP_NOACTIVATE)
	win.InvalidateRect(ow.hwnd, nil, true)
}

func cursorPos() image.Point {
	var pt win.POINT
	win.GetCursorPos(&pt)
	return image.Pt(int(pt.X), int(pt.Y))
}

func lookupOverlay(hwnd win.HWND) *OverlayWindow {
	overlaysMu.Lock()
	defer overlaysMu.Unlock()
	return overlays[hwnd]
}

func registerOverlayClass() {
	win.RegisterClassEx(&win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   syscall.NewCallback(overlayWndProc),
		HInstance:     win.GetModuleHandle(nil),
		LpszClassName: syscall.StringToUTF16Ptr(overlayClassName),
		HbrBackground: win.HBRUSH(win.GetStockObject(win.WHITE_BRUSH)),
	})
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	ow := lookupOverlay(hwnd)
	if ow == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}
	// Box の座標は絶対座標なのでカーソル位置を使う
	switch msg {
	case win.WM_LBUTTONDOWN:
		if ow.box.Press(cursorPos()) != overlay.Idle {
			win.SetCapture(hwnd)
		}
		return 0
	case win.WM_MOUSEMOVE:
		if ow.box.Mode() != overlay.Idle && ow.box.Motion(cursorPos()) {
			ow.sync()
		}
		return 0
	case win.WM_LBUTTONUP, win.WM_CAPTURECHANGED:
		if ow.box.Mode() == overlay.Idle {
			return 0
		}
		ow.box.Release()
		if msg == win.WM_LBUTTONUP {
			win.ReleaseCapture()
		}
		if ow.onChange != nil {
			ow.onChange(ow.box.Geometry())
		}
		return 0
	case win.WM_SETCURSOR:
		cursor := win.IDC_SIZEALL
		if ow.box.HitTest(cursorPos()) == overlay.PartHandle || ow.box.Mode() == overlay.Resizing {
			cursor = win.IDC_SIZENWSE
		}
		win.SetCursor(win.LoadCursor(0, win.MAKEINTRESOURCE(uintptr(cursor))))
		return 1
	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		if hdc != 0 {
			// 絶対座標からクライアント座標へ
			origin := ow.box.Bounds().Min
			drawFrame(hdc, ow.box.Bounds().Sub(origin).Inset(1), 3, win.RGB(255, 0, 0))
			fillRect(hdc, ow.box.HandleRect().Sub(origin), win.RGB(255, 0, 0))
		}
		win.EndPaint(hwnd, &ps)
		return 0
	case win.WM_DESTROY:
		overlaysMu.Lock()
		delete(overlays, hwnd)
		overlaysMu.Unlock()
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
