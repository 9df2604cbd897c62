//go:build windows

package window

import (
	"sync"
	"testing"
)

func TestWin32TryFocus_InvalidWindowFromManyGoroutines(t *testing.T) {
	d := &Win32Desktop{}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := d.TryFocus(Handle{ID: 0xdead0000})
			if err != nil {
				t.Errorf("TryFocus error: %v", err)
			}
			if ok {
				t.Error("TryFocus reported focus on a window that does not exist")
			}
		}()
	}
	wg.Wait()
}
