//go:build !linux

package main

import "unsafe"

// setWindowIcon is a no-op: macOS and Windows take the icon from the bundle
// and the executable resources.
func setWindowIcon(unsafe.Pointer, string) error { return nil }
