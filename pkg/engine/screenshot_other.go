//go:build !windows

package engine

import "image"

func enumerateWindows() ([]Window, error) {
	return nil, ErrNotSupported
}

func isWindow(uintptr) bool { return false }

func windowBounds(uintptr) (image.Rectangle, error) {
	return image.Rectangle{}, ErrNotSupported
}
