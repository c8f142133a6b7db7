//go:build linux

package main

func main() {
	// before any cgo code runs
	initCrashLog()
	run()
}
