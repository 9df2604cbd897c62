// Package window finds application windows by executable name and moves OS input focus
// onto them. Platform bindings live behind the Desktop interface; everything else in the
// package is platform independent.
package window

import (
	"errors"
	"strings"

	"github.com/bryanchriswhite/DonaldSwap/internal/logger"
)

var (
	// ErrFocusUnobtainable is returned once every focus attempt has failed.
	ErrFocusUnobtainable = errors.New("foreground focus unobtainable")

	// ErrUnsupported is returned by Open on platforms without a backend.
	ErrUnsupported = errors.New("window management is not supported on this platform")
)

// Handle identifies a top-level window. It is only valid for the lookup that produced it;
// windows come and go between scheduling cycles.
type Handle struct {
	ID      uintptr `json:"hwnd"`
	Title   string  `json:"title"`
	ExeName string  `json:"exe_name"`
}

// Enumerator lists visible, titled top-level windows with their owning executable.
// Windows that disappear mid-enumeration are omitted rather than reported as errors.
type Enumerator interface {
	Enumerate() ([]Handle, error)
}

// Focuser makes a single attempt at moving foreground focus to h and reports whether h
// holds focus afterwards.
type Focuser interface {
	TryFocus(h Handle) (bool, error)
}

// KeySender synthesises the ESC keypress sent when leaving or entering a game.
type KeySender interface {
	SendEscape() error
}

// Desktop is a platform backend.
type Desktop interface {
	Enumerator
	Focuser
	KeySender
	Name() string
	Close() error
}

// Locator resolves executable names to live windows. Nothing is cached: every call
// enumerates afresh.
type Locator struct {
	enum Enumerator
}

// NewLocator creates a Locator over enum.
func NewLocator(enum Enumerator) *Locator {
	return &Locator{enum: enum}
}

// Enumerate returns the current window list.
func (l *Locator) Enumerate() ([]Handle, error) {
	return l.enum.Enumerate()
}

// FindByExe returns the first window owned by exe (case-insensitive).
func (l *Locator) FindByExe(exe string) (Handle, bool) {
	windows, err := l.enum.Enumerate()
	if err != nil {
		logger.WithComponent("window").Warn().Err(err).Str("exe", exe).Msg("Window enumeration failed")
		return Handle{}, false
	}
	for _, w := range windows {
		if strings.EqualFold(w.ExeName, exe) {
			return w, true
		}
	}
	return Handle{}, false
}

// IsLive reports whether exe currently owns a window.
func (l *Locator) IsLive(exe string) bool {
	_, ok := l.FindByExe(exe)
	return ok
}
