//go:build windows

package ui

import (
	"image"
	"syscall"

	"github.com/lxn/win"
)

const lwaAlpha = 0x2

var (
	gdi32            = syscall.NewLazyDLL("gdi32.dll")
	user32           = syscall.NewLazyDLL("user32.dll")
	gdi32CreatePen   = gdi32.NewProc("CreatePen")
	gdi32CreateBrush = gdi32.NewProc("CreateSolidBrush")
	user32SetLayered = user32.NewProc("SetLayeredWindowAttributes")
	user32ShowAsync  = user32.NewProc("ShowWindowAsync")
)

func createPen(style, width int32, color uint32) win.HPEN {
	r, _, _ := gdi32CreatePen.Call(uintptr(style), uintptr(width), uintptr(color))
	return win.HPEN(r)
}

func createSolidBrush(color uint32) win.HBRUSH {
	r, _, _ := gdi32CreateBrush.Call(uintptr(color))
	return win.HBRUSH(r)
}

func setLayeredWindowAttributes(hwnd win.HWND, crKey uint32, bAlpha uint8, dwFlags uint32) bool {
	r, _, _ := user32SetLayered.Call(uintptr(hwnd), uintptr(crKey), uintptr(bAlpha), uintptr(dwFlags))
	return r != 0
}

// showWindowAsync はウィンドウを所有するスレッドを待たずに表示状態を変えます。
func showWindowAsync(hwnd win.HWND, cmd int32) {
	_, _, _ = user32ShowAsync.Call(uintptr(hwnd), uintptr(cmd))
}

// drawFrame は r の枠を width ピクセルの線で描きます。
func drawFrame(hdc win.HDC, r image.Rectangle, width int32, color win.COLORREF) {
	pen := createPen(win.PS_SOLID, width, uint32(color))
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))
	win.Rectangle_(hdc, int32(r.Min.X), int32(r.Min.Y), int32(r.Max.X), int32(r.Max.Y))
	win.SelectObject(hdc, oldBrush)
	win.SelectObject(hdc, oldPen)
	win.DeleteObject(win.HGDIOBJ(pen))
}

// fillRect は r を color で塗りつぶします。
func fillRect(hdc win.HDC, r image.Rectangle, color win.COLORREF) {
	brush := createSolidBrush(uint32(color))
	pen := win.GetStockObject(win.NULL_PEN)
	oldPen := win.SelectObject(hdc, pen)
	oldBrush := win.SelectObject(hdc, win.HGDIOBJ(brush))
	// NULL_PEN では右下が 1 ピクセル欠けるので広げる
	win.Rectangle_(hdc, int32(r.Min.X), int32(r.Min.Y), int32(r.Max.X)+1, int32(r.Max.Y)+1)
	win.SelectObject(hdc, oldBrush)
	win.SelectObject(hdc, oldPen)
	win.DeleteObject(win.HGDIOBJ(brush))
}
