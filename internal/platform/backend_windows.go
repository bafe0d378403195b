//go:build windows

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/1broseidon/pullwin/internal/win32"
	"golang.org/x/sys/windows"
)

const windowClassName = "PullwinWindow"

// The window procedure has no user pointer back into Go, so one backend is
// active per process.
var (
	activeMu sync.Mutex
	active   *WindowsBackend

	wndProcCallback = windows.NewCallback(wndProc)
)

// WindowsBackend drives a Win32 message queue. Every call must come from the
// goroutine that opened it; Open locks that goroutine to its OS thread.
type WindowsBackend struct {
	instance windows.Handle
	class    *uint16
	thread   uint32

	// pending collects messages captured by the window procedure while
	// DispatchMessage runs; NextRawEvent drains it first.
	pending []Win32Message
	closed  bool
}

var (
	_ Backend     = (*WindowsBackend)(nil)
	_ ThreadBound = (*WindowsBackend)(nil)
)

func openNative(Options) (Backend, error) {
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != nil {
		return nil, errors.New("win32: another backend is already open in this process")
	}

	runtime.LockOSThread()

	class, err := windows.UTF16PtrFromString(windowClassName)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	b := &WindowsBackend{
		instance: win32.ModuleHandle(),
		class:    class,
		thread:   windows.GetCurrentThreadId(),
	}
	wc := win32.WNDCLASSEXW{
		Style:      win32.CS_HREDRAW | win32.CS_VREDRAW | win32.CS_OWNDC,
		WndProc:    wndProcCallback,
		Instance:   b.instance,
		Cursor:     win32.LoadCursor(win32.IDC_ARROW),
		Background: windows.Handle(win32.COLOR_WINDOW + 1),
		ClassName:  class,
	}
	if err := win32.RegisterClassEx(&wc); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("register window class: %w", err)
	}
	active = b
	return b, nil
}

func (b *WindowsBackend) Kind() Kind { return KindWin32 }

// TwoPhaseGeometry is true: WM_WINDOWPOSCHANGING precedes WM_WINDOWPOSCHANGED.
func (b *WindowsBackend) TwoPhaseGeometry() bool { return true }

func (b *WindowsBackend) CreateWindow(spec WindowSpec) (NativeKey, error) {
	title, err := windows.UTF16PtrFromString(spec.Title)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	style := uint32(win32.WS_OVERLAPPEDWINDOW | win32.WS_CLIPCHILDREN)
	if spec.Parent != 0 && !spec.TopLevel {
		style = win32.WS_CHILD | win32.WS_VISIBLE
	}
	hwnd, err := win32.CreateWindowEx(0, b.class, title, style,
		int32(spec.Bounds.X), int32(spec.Bounds.Y), int32(spec.Bounds.Width), int32(spec.Bounds.Height),
		windows.HWND(spec.Parent), b.instance)
	if err != nil {
		return 0, fmt.Errorf("%w: CreateWindowExW: %v", ErrResourceExhausted, err)
	}
	return NativeKey(hwnd), nil
}

func (b *WindowsBackend) DestroyWindow(win NativeKey) error {
	return win32.DestroyWindow(windows.HWND(win))
}

func (b *WindowsBackend) ShowWindow(win NativeKey) error {
	win32.ShowWindow(windows.HWND(win), win32.SW_SHOW)
	return nil
}

func (b *WindowsBackend) SetBounds(win NativeKey, r Rect) error {
	return win32.SetWindowPos(windows.HWND(win), int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height),
		win32.SWP_NOZORDER|win32.SWP_NOACTIVATE)
}

func (b *WindowsBackend) SetText(win NativeKey, text string) error {
	return win32.SetWindowText(windows.HWND(win), text)
}

func (b *WindowsBackend) Reparent(win, parent NativeKey) error {
	return win32.SetParent(windows.HWND(win), windows.HWND(parent))
}

// SelectInput is a no-op: Win32 delivers every message to the window procedure.
func (b *WindowsBackend) SelectInput(NativeKey, InputMask) error { return nil }

func (b *WindowsBackend) CreateContext(win NativeKey) (Resource, error) {
	hdc := win32.GetDC(windows.HWND(win))
	if hdc == 0 {
		return Resource{}, fmt.Errorf("%w: GetDC", ErrResourceExhausted)
	}
	return Resource{Class: ResourceContext, Window: win, ID: uint64(hdc)}, nil
}

// CreateColormap creates a solid brush for the background color, or hands out
// the stock white brush, which is never deleted.
func (b *WindowsBackend) CreateColormap(win NativeKey, background *Color) (Resource, error) {
	if background == nil {
		stock := win32.StockObject(win32.WHITE_BRUSH)
		return Resource{Class: ResourceColormap, Window: win, ID: uint64(stock), Default: true}, nil
	}
	brush := win32.CreateSolidBrush(background.COLORREF())
	if brush == 0 {
		return Resource{}, fmt.Errorf("%w: CreateSolidBrush", ErrResourceExhausted)
	}
	return Resource{Class: ResourceColormap, Window: win, ID: uint64(brush)}, nil
}

// CreateInputContext returns the window's IME context. Without an IME the
// context is a shared default.
func (b *WindowsBackend) CreateInputContext(win NativeKey) (Resource, error) {
	himc := win32.ImmGetContext(windows.HWND(win))
	if himc == 0 {
		return Resource{Class: ResourceInputContext, Window: win, Default: true}, nil
	}
	return Resource{Class: ResourceInputContext, Window: win, ID: uint64(himc)}, nil
}

func (b *WindowsBackend) ReleaseResource(res Resource) error {
	if res.Default {
		return nil
	}
	switch res.Class {
	case ResourceContext:
		win32.ReleaseDC(windows.HWND(res.Window), windows.Handle(res.ID))
	case ResourceColormap:
		win32.DeleteObject(windows.Handle(res.ID))
	case ResourceInputContext:
		win32.ImmReleaseContext(windows.HWND(res.Window), windows.Handle(res.ID))
	default:
		return fmt.Errorf("%w: unknown resource class %s", ErrInvalidParameter, res.Class)
	}
	return nil
}

// NextRawEvent pumps the thread's message queue until the window procedure has
// captured at least one message.
func (b *WindowsBackend) NextRawEvent() (RawEvent, error) {
	for len(b.pending) == 0 {
		if b.closed {
			return nil, ErrConnectionClosed
		}
		var msg win32.MSG
		ok, err := win32.GetMessage(&msg)
		if err != nil {
			return nil, fmt.Errorf("GetMessageW: %w", err)
		}
		if !ok {
			b.closed = true
			return nil, ErrConnectionClosed
		}
		win32.TranslateMessage(&msg)
		win32.DispatchMessage(&msg)
	}
	m := b.pending[0]
	b.pending = b.pending[1:]
	return m, nil
}

// OnOwnerThread reports whether the caller runs on the thread that opened the
// backend.
func (b *WindowsBackend) OnOwnerThread() bool {
	return windows.GetCurrentThreadId() == b.thread
}

// Wake posts WM_QUIT to the owner thread, so its GetMessage returns.
func (b *WindowsBackend) Wake() {
	win32.PostThreadMessage(b.thread, win32.WM_QUIT)
}

// Close unregisters the window class and unlocks the owner thread. Off the
// owner thread it only wakes the message pump; the owner must call Close again.
func (b *WindowsBackend) Close() error {
	if !b.OnOwnerThread() {
		b.Wake()
		return nil
	}
	activeMu.Lock()
	defer activeMu.Unlock()
	if active != b {
		return nil
	}
	active = nil
	b.closed = true
	win32.UnregisterClass(b.class, b.instance)
	runtime.UnlockOSThread()
	return nil
}

func (b *WindowsBackend) capture(hwnd windows.HWND, msg uint32, wp, lp uintptr) {
	m := Win32Message{HWND: NativeKey(hwnd), Msg: msg, WParam: wp, LParam: lp}
	switch msg {
	case win32.WM_WINDOWPOSCHANGING, win32.WM_WINDOWPOSCHANGED:
		if lp != 0 {
			pos := (*win32.WINDOWPOS)(unsafe.Pointer(lp))
			m.Pos = &WindowPos{X: pos.X, Y: pos.Y, CX: pos.CX, CY: pos.CY, Flags: pos.Flags}
		}
	case win32.WM_KEYDOWN, win32.WM_KEYUP, win32.WM_SYSKEYDOWN, win32.WM_SYSKEYUP:
		m.Mods = Modifiers{
			Ctrl:  win32.KeyDown(win32.VK_CONTROL),
			Alt:   win32.KeyDown(win32.VK_MENU),
			Shift: win32.KeyDown(win32.VK_SHIFT),
		}
		if pt, ok := win32.CursorPos(hwnd); ok {
			m.Cursor = &Point{X: int(pt.X), Y: int(pt.Y)}
		}
	}
	b.pending = append(b.pending, m)
}

func wndProc(hwnd windows.HWND, msg uint32, wp, lp uintptr) uintptr {
	activeMu.Lock()
	b := active
	activeMu.Unlock()
	if b != nil {
		b.capture(hwnd, msg, wp, lp)
	}

	// Closing is the application's decision; it arrives as a Close or Quit event.
	if msg == win32.WM_CLOSE {
		return 0
	}
	return win32.DefWindowProc(hwnd, msg, wp, lp)
}
