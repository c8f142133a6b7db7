//go:build !linux

package tray

import "golang.design/x/hotkey/mainthread"

// runLoop runs fn on the main thread, which main hands over through
// mainthread.Init. Native tray calls must happen there.
func runLoop(fn func()) {
	mainthread.Call(fn)
}
