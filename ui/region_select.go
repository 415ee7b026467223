//go:build windows

package ui

import (
	"image"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"

	"LongScreenShot/capture"
)

// 範囲選択の枠が小さすぎる場合はクリックとみなして無視する
const minSelectSize = 3

// SelectRegion は全画面の半透明オーバーレイを表示し、マウスドラッグで矩形を選択させます。
// 選択された範囲（仮想スクリーンの絶対座標）と true を返します。Esc でキャンセルした場合は false を返します。
func SelectRegion() (capture.Region, bool) {
	bounds, err := capture.VirtualBounds()
	if err != nil || bounds.Empty() {
		return capture.Region{}, false
	}

	var (
		mu       sync.Mutex
		start    image.Point
		current  image.Point
		dragging bool
		result   capture.Region
		ok       bool
	)
	// クライアント座標から絶対座標の範囲へ
	regionOf := func(a, b image.Point) capture.Region {
		return capture.RegionFromPoints(a.X+bounds.Min.X, a.Y+bounds.Min.Y, b.X+bounds.Min.X, b.Y+bounds.Min.Y)
	}

	const wndClassName = "LongScreenShotRegionSelect"

	win.RegisterClassEx(&win.WNDCLASSEX{
		CbSize: uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:  win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc: syscall.NewCallback(func(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
			switch msg {
			case win.WM_LBUTTONDOWN:
				mu.Lock()
				start = pointFromLParam(lParam)
				current = start
				dragging = true
				mu.Unlock()
				win.SetCapture(hwnd)
				win.InvalidateRect(hwnd, nil, true)
				return 0
			case win.WM_MOUSEMOVE:
				if wParam&win.MK_LBUTTON != 0 {
					mu.Lock()
					current = pointFromLParam(lParam)
					mu.Unlock()
					win.InvalidateRect(hwnd, nil, true)
				}
				return 0
			case win.WM_LBUTTONUP:
				mu.Lock()
				if dragging {
					r := regionOf(start, pointFromLParam(lParam))
					if r.Width >= minSelectSize && r.Height >= minSelectSize {
						result, ok = r, true
					}
					dragging = false
					win.ReleaseCapture()
					win.PostQuitMessage(0)
				}
				mu.Unlock()
				return 0
			case win.WM_KEYDOWN:
				if wParam == win.VK_ESCAPE {
					win.PostQuitMessage(0)
				}
				return 0
			case win.WM_PAINT:
				var ps win.PAINTSTRUCT
				hdc := win.BeginPaint(hwnd, &ps)
				if hdc != 0 {
					mu.Lock()
					r := capture.RegionFromPoints(start.X, start.Y, current.X, current.Y)
					dr := dragging
					mu.Unlock()
					if dr {
						drawFrame(hdc, r.Rect(), 2, win.RGB(0, 255, 0))
					}
				}
				win.EndPaint(hwnd, &ps)
				return 0
			}
			return win.DefWindowProc(hwnd, msg, wParam, lParam)
		}),
		HInstance:     win.GetModuleHandle(nil),
		LpszClassName: syscall.StringToUTF16Ptr(wndClassName),
		HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_CROSS)),
		HbrBackground: win.HBRUSH(win.GetStockObject(win.BLACK_BRUSH)),
	})

	hwnd := win.CreateWindowEx(
		win.WS_EX_LAYERED|win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW,
		syscall.StringToUTF16Ptr(wndClassName),
		nil,
		win.WS_POPUP|win.WS_VISIBLE,
		int32(bounds.Min.X), int32(bounds.Min.Y), int32(bounds.Dx()), int32(bounds.Dy()),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if hwnd == 0 {
		return capture.Region{}, false
	}
	setLayeredWindowAttributes(hwnd, 0, 77, lwaAlpha)
	win.SetForegroundWindow(hwnd)

	var msg win.MSG
	for win.GetMessage(&msg, 0, 0, 0) != 0 {
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	win.DestroyWindow(hwnd)

	return result, ok
}

func pointFromLParam(lParam uintptr) image.Point {
	// 負の座標（左・上のモニター）を考慮して符号付きで取り出す
	return image.Pt(int(int16(win.LOWORD(uint32(lParam)))), int(int16(win.HIWORD(uint32(lParam)))))
}
