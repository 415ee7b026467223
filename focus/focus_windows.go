//go:build windows

package focus

import (
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

var (
	user32             = syscall.NewLazyDLL("user32.dll")
	procEnumWindows    = user32.NewProc("EnumWindows")
	procGetWindowTextW = user32.NewProc("GetWindowTextW")
)

// eachVisible は表示中でタイトルのあるトップレベルウィンドウごとに fn を呼びます。fn が false を返すと列挙をやめます。
func eachVisible(fn func(hwnd win.HWND, title string) bool) {
	cb := syscall.NewCallback(func(hwnd win.HWND, _ uintptr) uintptr {
		if !win.IsWindowVisible(hwnd) {
			return 1
		}
		buf := make([]uint16, 256)
		n := windowText(hwnd, buf)
		if n == 0 {
			return 1
		}
		if fn(hwnd, syscall.UTF16ToString(buf[:n])) {
			return 1 // 続行
		}
		return 0 // 列挙中止
	})
	_, _, _ = procEnumWindows.Call(cb, 0)
}

func windowText(hwnd win.HWND, buf []uint16) int {
	r0, _, _ := syscall.SyscallN(procGetWindowTextW.Addr(),
		uintptr(hwnd),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)))
	return int(r0)
}

func titles() []string {
	var out []string
	eachVisible(func(_ win.HWND, title string) bool {
		out = append(out, title)
		return true
	})
	return out
}

func activate(title string) bool {
	var found win.HWND
	eachVisible(func(hwnd win.HWND, t string) bool {
		if t == title {
			found = hwnd
			return false
		}
		return true
	})
	if found == 0 {
		return false
	}
	if win.IsIconic(found) {
		win.ShowWindow(found, win.SW_RESTORE)
	}
	return win.SetForegroundWindow(found)
}
