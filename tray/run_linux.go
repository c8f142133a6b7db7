//go:build linux

package tray

func runLoop(fn func()) {
	fn()
}
