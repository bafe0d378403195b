// Package win32 holds the window-message constants and the user32/gdi32/imm32
// bindings the Win32 adapter needs. The constants and lParam helpers build on
// every platform so message translation can be tested anywhere.
package win32

import "fmt"

// Window messages.
const (
	WM_CREATE            = 0x0001
	WM_DESTROY           = 0x0002
	WM_MOVE              = 0x0003
	WM_SIZE              = 0x0005
	WM_SETFOCUS          = 0x0007
	WM_KILLFOCUS         = 0x0008
	WM_SETTEXT           = 0x000C
	WM_PAINT             = 0x000F
	WM_CLOSE             = 0x0010
	WM_QUIT              = 0x0012
	WM_ERASEBKGND        = 0x0014
	WM_SHOWWINDOW        = 0x0018
	WM_SETCURSOR         = 0x0020
	WM_WINDOWPOSCHANGING = 0x0046
	WM_WINDOWPOSCHANGED  = 0x0047
	WM_NCCREATE          = 0x0081
	WM_NCDESTROY         = 0x0082
	WM_NCHITTEST         = 0x0084
	WM_KEYDOWN           = 0x0100
	WM_KEYUP             = 0x0101
	WM_CHAR              = 0x0102
	WM_SYSKEYDOWN        = 0x0104
	WM_SYSKEYUP          = 0x0105
	WM_MOUSEMOVE         = 0x0200
	WM_LBUTTONDOWN       = 0x0201
	WM_LBUTTONUP         = 0x0202
	WM_RBUTTONDOWN       = 0x0204
	WM_RBUTTONUP         = 0x0205
	WM_MBUTTONDOWN       = 0x0207
	WM_MBUTTONUP         = 0x0208
	WM_XBUTTONDOWN       = 0x020B
	WM_XBUTTONUP         = 0x020C
)

// XBUTTON identifiers carried in the high word of wParam.
const (
	XBUTTON1 = 0x0001
	XBUTTON2 = 0x0002
)

// SetWindowPos / WINDOWPOS flags.
const (
	SWP_NOSIZE     = 0x0001
	SWP_NOMOVE     = 0x0002
	SWP_NOZORDER   = 0x0004
	SWP_NOACTIVATE = 0x0010
)

// Virtual keys sampled for modifier state.
const (
	VK_SHIFT   = 0x10
	VK_CONTROL = 0x11
	VK_MENU    = 0x12
)

// Window styles.
const (
	WS_OVERLAPPEDWINDOW = 0x00CF0000
	WS_CHILD            = 0x40000000
	WS_VISIBLE          = 0x10000000
	WS_CLIPCHILDREN     = 0x02000000
	CW_USEDEFAULT       = ^0x7fffffff
)

// Class styles, stock objects and misc.
const (
	CS_HREDRAW    = 0x0002
	CS_VREDRAW    = 0x0001
	CS_OWNDC      = 0x0020
	COLOR_WINDOW  = 5
	WHITE_BRUSH   = 0
	IDC_ARROW     = 32512
	SW_SHOW       = 5
	ERROR_SUCCESS = 0
)

// LoWord returns the low 16 bits of v.
func LoWord(v uintptr) uint16 { return uint16(v & 0xffff) }

// HiWord returns bits 16-31 of v.
func HiWord(v uintptr) uint16 { return uint16((v >> 16) & 0xffff) }

// PointFromLParam decodes the signed client coordinates packed into lParam by
// mouse messages (GET_X_LPARAM / GET_Y_LPARAM).
func PointFromLParam(lp uintptr) (x, y int) {
	return int(int16(LoWord(lp))), int(int16(HiWord(lp)))
}

// MakeLParam packs two coordinates the way mouse messages do.
func MakeLParam(x, y int) uintptr {
	return uintptr(uint16(int16(x))) | uintptr(uint16(int16(y)))<<16
}

var messageNames = map[uint32]string{
	WM_CREATE:            "WM_CREATE",
	WM_DESTROY:           "WM_DESTROY",
	WM_MOVE:              "WM_MOVE",
	WM_SIZE:              "WM_SIZE",
	WM_SETFOCUS:          "WM_SETFOCUS",
	WM_KILLFOCUS:         "WM_KILLFOCUS",
	WM_SETTEXT:           "WM_SETTEXT",
	WM_PAINT:             "WM_PAINT",
	WM_CLOSE:             "WM_CLOSE",
	WM_QUIT:              "WM_QUIT",
	WM_ERASEBKGND:        "WM_ERASEBKGND",
	WM_SHOWWINDOW:        "WM_SHOWWINDOW",
	WM_SETCURSOR:         "WM_SETCURSOR",
	WM_WINDOWPOSCHANGING: "WM_WINDOWPOSCHANGING",
	WM_WINDOWPOSCHANGED:  "WM_WINDOWPOSCHANGED",
	WM_NCCREATE:          "WM_NCCREATE",
	WM_NCDESTROY:         "WM_NCDESTROY",
	WM_NCHITTEST:         "WM_NCHITTEST",
	WM_KEYDOWN:           "WM_KEYDOWN",
	WM_KEYUP:             "WM_KEYUP",
	WM_CHAR:              "WM_CHAR",
	WM_SYSKEYDOWN:        "WM_SYSKEYDOWN",
	WM_SYSKEYUP:          "WM_SYSKEYUP",
	WM_MOUSEMOVE:         "WM_MOUSEMOVE",
	WM_LBUTTONDOWN:       "WM_LBUTTONDOWN",
	WM_LBUTTONUP:         "WM_LBUTTONUP",
	WM_RBUTTONDOWN:       "WM_RBUTTONDOWN",
	WM_RBUTTONUP:         "WM_RBUTTONUP",
	WM_MBUTTONDOWN:       "WM_MBUTTONDOWN",
	WM_MBUTTONUP:         "WM_MBUTTONUP",
	WM_XBUTTONDOWN:       "WM_XBUTTONDOWN",
	WM_XBUTTONUP:         "WM_XBUTTONUP",
}

// MessageName returns the symbolic name of msg, or its hex value.
func MessageName(msg uint32) string {
	if name, ok := messageNames[msg]; ok {
		return name
	}
	return fmt.Sprintf("WM_0x%04X", msg)
}
