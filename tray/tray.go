// Package tray shows recording state in the system tray and offers
// record/stop, copy and paste of the last transcription, device choice and
// quit from its menu.
package tray

import (
	"sync"
	"sync/atomic"
	"time"
)

const appName = "dictafield"

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once
	toggleCh  = make(chan struct{}, 1)

	ready atomic.Bool

	stateMu   sync.Mutex
	recording bool
	warning   bool
	target    string
	lastText  string

	copyLastFn  func()
	pasteLastFn func()

	deviceMu    sync.Mutex
	deviceNames []string
	deviceSel   string
	deviceCb    func(string)
	isBTFn      func(string) bool
)

// Toggles delivers a value for every Start/Stop Recording click.
func Toggles() <-chan struct{} { return toggleCh }

func requestToggle() {
	select {
	case toggleCh <- struct{}{}:
	default:
	}
}

func OnCopyLast(fn func())  { copyLastFn = fn }
func OnPasteLast(fn func()) { pasteLastFn = fn }

func SetBTCheck(fn func(string) bool) { isBTFn = fn }

// SetTarget names the record field dictation goes to.
func SetTarget(label string) {
	stateMu.Lock()
	target = label
	stateMu.Unlock()
	updateTooltip(idleTooltip())
}

func idleTooltip() string {
	stateMu.Lock()
	defer stateMu.Unlock()
	if target == "" {
		return appName
	}
	return appName + " – " + target
}

func SetRecording(rec bool) {
	stateMu.Lock()
	recording = rec
	warning = false
	stateMu.Unlock()
	updateRecordingIcon(rec)
	if rec {
		disableDevices()
	} else {
		enableDevices()
	}
}

func SetWarning(on bool) {
	stateMu.Lock()
	if !recording {
		stateMu.Unlock()
		return
	}
	warning = on
	stateMu.Unlock()
	updateWarningIcon(on)
}

func IsRecording() bool {
	stateMu.Lock()
	defer stateMu.Unlock()
	return recording
}

// SetError shows msg in the tooltip for a while.
func SetError(msg string) {
	updateTooltip(appName + " – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		updateTooltip(idleTooltip())
	}()
}

// SetLastText enables the copy and paste entries for text.
func SetLastText(text string) {
	stateMu.Lock()
	lastText = text
	stateMu.Unlock()
	updateLastTitle(lastTitle(text))
}

func lastTitle(text string) string {
	const maxRunes = 32
	r := []rune(text)
	if len(r) > maxRunes {
		return string(r[:maxRunes]) + "…"
	}
	return text
}

func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

func SetDevices(names []string, selected string, onSwitch func(name string)) {
	deviceMu.Lock()
	deviceNames = names
	deviceSel = selected
	if onSwitch != nil {
		deviceCb = onSwitch
	}
	deviceMu.Unlock()
}

func deviceDisplayName(name string) string {
	if isBTFn != nil && isBTFn(name) {
		return name + " [⚠ Lower audio quality]"
	}
	return name
}

// Indicator adapts the tray to the recorder's indicator interface.
type Indicator struct{}

func (Indicator) SetRecording(on bool) { SetRecording(on) }
func (Indicator) SetWarning(on bool)   { SetWarning(on) }
