//go:build linux

package window

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
)

const (
	keysymEscape = 0xff1b
	keysymAltL   = 0xffe9

	// _NET_ACTIVE_WINDOW source indication: 2 = pager, which window managers honour
	// without applying focus-stealing prevention.
	activeSourcePager = 2

	// How long the window manager gets to act on _NET_ACTIVE_WINDOW before verification.
	activationSettle = 20 * time.Millisecond
)

// X11Desktop implements Desktop over an X11 connection using EWMH hints and XTEST.
type X11Desktop struct {
	conn  *xgb.Conn
	root  xproto.Window
	setup *xproto.SetupInfo
	mu    sync.Mutex
	atoms map[string]xproto.Atom
	xtest bool
}

// Open connects to $DISPLAY.
func Open() (Desktop, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	d := &X11Desktop{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		setup: setup,
		atoms: make(map[string]xproto.Atom),
	}

	if err := xtest.Init(conn); err != nil {
		logger.WithComponent("x11").Warn().Err(err).Msg("XTEST unavailable, key presses disabled")
	} else {
		d.xtest = true
	}

	return d, nil
}

// Name returns the backend name
func (d *X11Desktop) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (d *X11Desktop) Close() error {
	d.conn.Close()
	return nil
}

// Enumerate lists managed windows from _NET_CLIENT_LIST, skipping untitled windows and
// windows whose owning process cannot be resolved.
func (d *X11Desktop) Enumerate() ([]Handle, error) {
	log := logger.WithComponent("x11")

	clientList, err := d.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(d.conn, false, d.root, clientList,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get _NET_CLIENT_LIST property: %w", err)
	}

	handles := make([]Handle, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		win := xproto.Window(le32(reply.Value[i:]))

		title := d.title(win)
		if title == "" {
			continue
		}
		exe := d.exe(win)
		if exe == "" {
			log.Debug().Uint32("window", uint32(win)).Str("title", title).Msg("Skipping window without process")
			continue
		}
		handles = append(handles, Handle{ID: uintptr(win), Title: title, ExeName: exe})
	}
	return handles, nil
}

func (d *X11Desktop) title(win xproto.Window) string {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		atom, err := d.atom(name)
		if err != nil {
			continue
		}
		reply, err := xproto.GetProperty(d.conn, false, win, atom,
			xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
		if err == nil && reply.ValueLen > 0 {
			return string(reply.Value)
		}
	}
	return ""
}

func (d *X11Desktop) exe(win xproto.Window) string {
	pidAtom, err := d.atom("_NET_WM_PID")
	if err != nil {
		return ""
	}
	reply, err := xproto.GetProperty(d.conn, false, win, pidAtom,
		xproto.AtomCardinal, 0, 1).Reply()
	if err != nil || len(reply.Value) < 4 {
		return ""
	}
	return exeForPID(le32(reply.Value))
}

func exeForPID(pid uint32) string {
	if path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid)); err == nil {
		return filepath.Base(path)
	}
	if comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid)); err == nil {
		return strings.TrimSpace(string(comm))
	}
	return ""
}

// TryFocus taps Alt, asks the window manager to activate the window, maps it if it was
// iconified, sets input focus and verifies via _NET_ACTIVE_WINDOW.
func (d *X11Desktop) TryFocus(h Handle) (bool, error) {
	win := xproto.Window(h.ID)

	if d.xtest {
		if err := d.tap(keysymAltL); err != nil {
			logger.WithComponent("x11").Debug().Err(err).Msg("Alt tap failed")
		}
	}

	if err := xproto.MapWindowChecked(d.conn, win).Check(); err != nil {
		return false, fmt.Errorf("map window: %w", err)
	}

	active, err := d.atom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return false, err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   active,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{activeSourcePager, xproto.TimeCurrentTime, 0, 0, 0}),
	}
	mask := uint32(xproto.EventMaskSubstructureNotify | xproto.EventMaskSubstructureRedirect)
	if err := xproto.SendEventChecked(d.conn, false, d.root, mask, string(ev.Bytes())).Check(); err != nil {
		return false, fmt.Errorf("send _NET_ACTIVE_WINDOW: %w", err)
	}

	xproto.ConfigureWindow(d.conn, win, xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
	xproto.SetInputFocus(d.conn, xproto.InputFocusParent, win, xproto.TimeCurrentTime)

	time.Sleep(activationSettle)

	reply, err := xproto.GetProperty(d.conn, false, d.root, active,
		xproto.AtomWindow, 0, 1).Reply()
	if err != nil {
		return false, fmt.Errorf("read _NET_ACTIVE_WINDOW: %w", err)
	}
	if len(reply.Value) < 4 {
		return false, nil
	}
	return xproto.Window(le32(reply.Value)) == win, nil
}

// SendEscape taps ESC through XTEST.
func (d *X11Desktop) SendEscape() error {
	if !d.xtest {
		return fmt.Errorf("XTEST extension not available")
	}
	return d.tap(keysymEscape)
}

func (d *X11Desktop) tap(keysym xproto.Keysym) error {
	code, err := d.keycode(keysym)
	if err != nil {
		return err
	}
	if err := xtest.FakeInputChecked(d.conn, xproto.KeyPress, byte(code), 0, d.root, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("key press: %w", err)
	}
	if err := xtest.FakeInputChecked(d.conn, xproto.KeyRelease, byte(code), 0, d.root, 0, 0, 0).Check(); err != nil {
		return fmt.Errorf("key release: %w", err)
	}
	return nil
}

func (d *X11Desktop) keycode(keysym xproto.Keysym) (xproto.Keycode, error) {
	first := d.setup.MinKeycode
	count := byte(d.setup.MaxKeycode - first + 1)
	mapping, err := xproto.GetKeyboardMapping(d.conn, first, count).Reply()
	if err != nil {
		return 0, fmt.Errorf("keyboard mapping: %w", err)
	}
	per := int(mapping.KeysymsPerKeycode)
	for i, sym := range mapping.Keysyms {
		if sym == keysym {
			return first + xproto.Keycode(i/per), nil
		}
	}
	return 0, fmt.Errorf("no keycode for keysym %#x", keysym)
}

func (d *X11Desktop) atom(name string) (xproto.Atom, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if a, ok := d.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(d.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("intern atom %s: %w", name, err)
	}
	d.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
