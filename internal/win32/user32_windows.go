//go:build windows

package win32

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	imm32    = windows.NewLazySystemDLL("imm32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterClassExW   = user32.NewProc("RegisterClassExW")
	procUnregisterClassW   = user32.NewProc("UnregisterClassW")
	procCreateWindowExW    = user32.NewProc("CreateWindowExW")
	procDestroyWindow      = user32.NewProc("DestroyWindow")
	procDefWindowProcW     = user32.NewProc("DefWindowProcW")
	procShowWindow         = user32.NewProc("ShowWindow")
	procUpdateWindow       = user32.NewProc("UpdateWindow")
	procSetWindowPos       = user32.NewProc("SetWindowPos")
	procSetParent          = user32.NewProc("SetParent")
	procSetWindowTextW     = user32.NewProc("SetWindowTextW")
	procGetMessageW        = user32.NewProc("GetMessageW")
	procTranslateMessage   = user32.NewProc("TranslateMessage")
	procDispatchMessageW   = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
	procGetKeyState        = user32.NewProc("GetKeyState")
	procGetCursorPos       = user32.NewProc("GetCursorPos")
	procScreenToClient     = user32.NewProc("ScreenToClient")
	procLoadCursorW        = user32.NewProc("LoadCursorW")
	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")

	procCreateSolidBrush = gdi32.NewProc("CreateSolidBrush")
	procDeleteObject     = gdi32.NewProc("DeleteObject")
	procGetStockObject   = gdi32.NewProc("GetStockObject")

	procImmGetContext     = imm32.NewProc("ImmGetContext")
	procImmReleaseContext = imm32.NewProc("ImmReleaseContext")

	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

// POINT mirrors the native struct.
type POINT struct {
	X, Y int32
}

// MSG mirrors the native struct.
type MSG struct {
	Hwnd    windows.HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      POINT
	Private uint32
}

// WINDOWPOS mirrors the native struct pointed to by WM_WINDOWPOS* lParams.
type WINDOWPOS struct {
	Hwnd            windows.HWND
	HwndInsertAfter windows.HWND
	X, Y, CX, CY    int32
	Flags           uint32
}

// WNDCLASSEXW mirrors the native struct.
type WNDCLASSEXW struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

func ModuleHandle() windows.Handle {
	r, _, _ := procGetModuleHandleW.Call(0)
	return windows.Handle(r)
}

func RegisterClassEx(wc *WNDCLASSEXW) error {
	wc.Size = uint32(unsafe.Sizeof(*wc))
	r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(wc)))
	if r == 0 {
		return err
	}
	return nil
}

func UnregisterClass(name *uint16, inst windows.Handle) {
	procUnregisterClassW.Call(uintptr(unsafe.Pointer(name)), uintptr(inst))
}

func CreateWindowEx(exStyle uint32, class, title *uint16, style uint32, x, y, w, h int32, parent windows.HWND, inst windows.Handle) (windows.HWND, error) {
	r, _, err := procCreateWindowExW.Call(
		uintptr(exStyle),
		uintptr(unsafe.Pointer(class)),
		uintptr(unsafe.Pointer(title)),
		uintptr(style),
		uintptr(x), uintptr(y), uintptr(w), uintptr(h),
		uintptr(parent), 0, uintptr(inst), 0,
	)
	if r == 0 {
		return 0, err
	}
	return windows.HWND(r), nil
}

func DestroyWindow(hwnd windows.HWND) error {
	r, _, err := procDestroyWindow.Call(uintptr(hwnd))
	if r == 0 {
		return err
	}
	return nil
}

func DefWindowProc(hwnd windows.HWND, msg uint32, wp, lp uintptr) uintptr {
	r, _, _ := procDefWindowProcW.Call(uintptr(hwnd), uintptr(msg), wp, lp)
	return r
}

func ShowWindow(hwnd windows.HWND, cmd int32) {
	procShowWindow.Call(uintptr(hwnd), uintptr(cmd))
	procUpdateWindow.Call(uintptr(hwnd))
}

func SetWindowPos(hwnd windows.HWND, x, y, w, h int32, flags uint32) error {
	r, _, err := procSetWindowPos.Call(uintptr(hwnd), 0, uintptr(x), uintptr(y), uintptr(w), uintptr(h), uintptr(flags))
	if r == 0 {
		return err
	}
	return nil
}

// SetParent moves child under parent; a zero parent means the desktop.
func SetParent(child, parent windows.HWND) error {
	r, _, err := procSetParent.Call(uintptr(child), uintptr(parent))
	if r == 0 {
		return err
	}
	return nil
}

func SetWindowText(hwnd windows.HWND, text string) error {
	p, err := windows.UTF16PtrFromString(text)
	if err != nil {
		return err
	}
	r, _, err := procSetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(p)))
	if r == 0 {
		return err
	}
	return nil
}

// GetMessage returns false when WM_QUIT was retrieved.
func GetMessage(msg *MSG) (bool, error) {
	r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(msg)), 0, 0, 0)
	switch int32(r) {
	case -1:
		return false, err
	case 0:
		return false, nil
	}
	return true, nil
}

func TranslateMessage(msg *MSG) {
	procTranslateMessage.Call(uintptr(unsafe.Pointer(msg)))
}

func DispatchMessage(msg *MSG) {
	procDispatchMessageW.Call(uintptr(unsafe.Pointer(msg)))
}

func PostThreadMessage(thread uint32, msg uint32) {
	procPostThreadMessageW.Call(uintptr(thread), uintptr(msg), 0, 0)
}

// KeyDown reports whether the high-order bit of GetKeyState is set for vk.
func KeyDown(vk int32) bool {
	r, _, _ := procGetKeyState.Call(uintptr(vk))
	return uint16(r)&0x8000 != 0
}

// CursorPos returns the cursor position in hwnd's client coordinates.
func CursorPos(hwnd windows.HWND) (POINT, bool) {
	var pt POINT
	if r, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt))); r == 0 {
		return pt, false
	}
	if r, _, _ := procScreenToClient.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pt))); r == 0 {
		return pt, false
	}
	return pt, true
}

func LoadCursor(id uintptr) windows.Handle {
	r, _, _ := procLoadCursorW.Call(0, id)
	return windows.Handle(r)
}

func GetDC(hwnd windows.HWND) windows.Handle {
	r, _, _ := procGetDC.Call(uintptr(hwnd))
	return windows.Handle(r)
}

func ReleaseDC(hwnd windows.HWND, hdc windows.Handle) {
	procReleaseDC.Call(uintptr(hwnd), uintptr(hdc))
}

func CreateSolidBrush(colorref uint32) windows.Handle {
	r, _, _ := procCreateSolidBrush.Call(uintptr(colorref))
	return windows.Handle(r)
}

func DeleteObject(obj windows.Handle) {
	procDeleteObject.Call(uintptr(obj))
}

func StockObject(id int32) windows.Handle {
	r, _, _ := procGetStockObject.Call(uintptr(id))
	return windows.Handle(r)
}

func ImmGetContext(hwnd windows.HWND) windows.Handle {
	r, _, _ := procImmGetContext.Call(uintptr(hwnd))
	return windows.Handle(r)
}

func ImmReleaseContext(hwnd windows.HWND, himc windows.Handle) {
	procImmReleaseContext.Call(uintptr(hwnd), uintptr(himc))
}
