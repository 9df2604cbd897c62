//go:build windows

package window

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
	"golang.org/x/sys/windows"
)

const (
	vkMenu         = 0x12
	vkEscape       = 0x1B
	keyeventfKeyUp = 0x0002
	swRestore      = 9
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procKeybdEvent          = user32.NewProc("keybd_event")
	procShowWindow          = user32.NewProc("ShowWindow")
	procIsIconic            = user32.NewProc("IsIconic")
	procAttachThreadInput   = user32.NewProc("AttachThreadInput")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procBringWindowToTop    = user32.NewProc("BringWindowToTop")
	procSetFocus            = user32.NewProc("SetFocus")
	procGetWindowTextLength = user32.NewProc("GetWindowTextLengthW")
	procGetWindowText       = user32.NewProc("GetWindowTextW")
)

// EnumWindows hands each window to a C callback. The callback is created once (the runtime
// never frees callbacks) and appends to enumTarget, which is only non-nil while enumMu is
// held by Enumerate.
var (
	enumMu       sync.Mutex
	enumTarget   *[]windows.HWND
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		*enumTarget = append(*enumTarget, hwnd)
		return 1
	})
)

// Win32Desktop drives window focus through user32.
type Win32Desktop struct{}

// Open returns the Win32 backend.
func Open() (Desktop, error) {
	return &Win32Desktop{}, nil
}

// Name returns the backend name
func (d *Win32Desktop) Name() string {
	return "win32"
}

// Close is a no-op; the backend holds no resources.
func (d *Win32Desktop) Close() error {
	return nil
}

// Enumerate lists visible, titled top-level windows with a resolvable executable.
func (d *Win32Desktop) Enumerate() ([]Handle, error) {
	hwnds, err := topLevelWindows()
	if err != nil {
		return nil, err
	}

	handles := make([]Handle, 0, len(hwnds))
	for _, hwnd := range hwnds {
		if !windows.IsWindowVisible(hwnd) {
			continue
		}
		title := windowTitle(hwnd)
		if title == "" {
			continue
		}
		exe := windowExe(hwnd)
		if exe == "" {
			continue
		}
		handles = append(handles, Handle{
			ID:      uintptr(hwnd),
			Title:   title,
			ExeName: exe,
		})
	}
	return handles, nil
}

func topLevelWindows() ([]windows.HWND, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	hwnds := make([]windows.HWND, 0, 64)
	enumTarget = &hwnds
	defer func() { enumTarget = nil }()

	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows failed: %w", err)
	}
	return hwnds, nil
}

func windowTitle(hwnd windows.HWND) string {
	length, _, _ := procGetWindowTextLength.Call(uintptr(hwnd))
	if length == 0 {
		return ""
	}
	buf := make([]uint16, length+1)
	n, _, _ := procGetWindowText.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowExe(hwnd windows.HWND) string {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
		return ""
	}

	process, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(process)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(process, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}

// TryFocus runs one round of the foreground dance: an ALT tap to lift the foreground lock,
// restore if minimised, borrow the foreground thread's input state when it belongs to a
// different thread, then raise and focus the target.
func (d *Win32Desktop) TryFocus(h Handle) (bool, error) {
	// AttachThreadInput binds the calling OS thread; the whole dance must stay on it.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hwnd := windows.HWND(h.ID)

	tapKey(vkMenu)

	if iconic, _, _ := procIsIconic.Call(uintptr(hwnd)); iconic != 0 {
		procShowWindow.Call(uintptr(hwnd), swRestore)
	}

	foreground := windows.GetForegroundWindow()
	currentThread := windows.GetCurrentThreadId()
	var foregroundThread uint32
	attached := false

	if foreground != 0 && foreground != hwnd {
		foregroundThread, _ = windows.GetWindowThreadProcessId(foreground, nil)
		if foregroundThread != 0 && foregroundThread != currentThread {
			r, _, err := procAttachThreadInput.Call(uintptr(currentThread), uintptr(foregroundThread), 1)
			if r == 0 {
				logger.WithComponent("win32").Debug().Err(err).Msg("AttachThreadInput failed")
			} else {
				attached = true
			}
		}
	}

	procSetForegroundWindow.Call(uintptr(hwnd))
	procBringWindowToTop.Call(uintptr(hwnd))
	procSetFocus.Call(uintptr(hwnd))

	if attached {
		procAttachThreadInput.Call(uintptr(currentThread), uintptr(foregroundThread), 0)
	}

	return windows.GetForegroundWindow() == hwnd, nil
}

// SendEscape taps ESC.
func (d *Win32Desktop) SendEscape() error {
	tapKey(vkEscape)
	return nil
}

func tapKey(vk byte) {
	procKeybdEvent.Call(uintptr(vk), 0, 0, 0)
	procKeybdEvent.Call(uintptr(vk), 0, keyeventfKeyUp, 0)
}
