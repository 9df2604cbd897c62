//go:build !windows && !linux

package window

// Open reports that no backend exists for this platform.
func Open() (Desktop, error) {
	return nil, ErrUnsupported
}
