package tray

import (
	"sync"

	"fyne.io/systray"
)

var (
	mRecord     *systray.MenuItem
	mCopy       *systray.MenuItem
	mPaste      *systray.MenuItem
	mDevices    *systray.MenuItem
	deviceItems []*systray.MenuItem
	deviceReady chan struct{}

	endLoop func()
	endOnce sync.Once
)

// Init starts the tray and returns a channel closed when Quit is chosen.
func Init() <-chan struct{} {
	deviceReady = make(chan struct{})
	start, end := systray.RunWithExternalLoop(onReady, onExit)
	endLoop = end
	runLoop(start)
	return quitCh
}

// Close removes the tray icon. It is safe to call without Init.
func Close() {
	Quit()
	endOnce.Do(func() {
		if endLoop != nil {
			runLoop(endLoop)
		}
	})
}

func updateRecordingIcon(rec bool) {
	if !ready.Load() {
		return
	}
	if rec {
		systray.SetIcon(iconRec)
		mRecord.SetTitle("Stop Recording")
		return
	}
	systray.SetTemplateIcon(iconIdle, iconIdle)
	mRecord.SetTitle("Start Recording")
}

func updateWarningIcon(on bool) {
	if !ready.Load() {
		return
	}
	if on {
		systray.SetIcon(iconWarn)
	} else {
		systray.SetIcon(iconRec)
	}
}

func updateTooltip(msg string) {
	if ready.Load() {
		systray.SetTooltip(msg)
	}
}

func updateLastTitle(text string) {
	if !ready.Load() {
		return
	}
	mCopy.SetTitle("Copy: " + text)
	mCopy.Enable()
	mPaste.Enable()
}

func disableDevices() {
	if ready.Load() && mDevices != nil {
		mDevices.Disable()
	}
}

func enableDevices() {
	if ready.Load() && mDevices != nil {
		mDevices.Enable()
	}
}

func addDeviceItem(idx int, name string, checked bool) *systray.MenuItem {
	label := deviceDisplayName(name)
	item := mDevices.AddSubMenuItemCheckbox(label, name, checked)
	go func() {
		for range item.ClickedCh {
			selectDevice(idx)
		}
	}()
	return item
}

func selectDevice(idx int) {
	deviceMu.Lock()
	// names may have changed since the item was created
	name := ""
	if idx < len(deviceNames) {
		name = deviceNames[idx]
	}
	cb := deviceCb
	deviceMu.Unlock()
	if cb == nil || name == "" {
		return
	}
	cb(name)

	deviceMu.Lock()
	deviceSel = name
	for i, it := range deviceItems {
		if i == idx {
			it.Check()
		} else {
			it.Uncheck()
		}
	}
	deviceMu.Unlock()
}

// RefreshDevices updates the device submenu after a hotplug change.
func RefreshDevices(names []string, selected string) {
	if deviceReady == nil {
		return
	}
	<-deviceReady

	deviceMu.Lock()
	defer deviceMu.Unlock()
	deviceNames = names
	deviceSel = selected

	for i, item := range deviceItems {
		if i >= len(names) {
			item.Hide()
			item.Uncheck()
			continue
		}
		item.SetTitle(deviceDisplayName(names[i]))
		item.SetTooltip(names[i])
		item.Show()
		if names[i] == selected {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	for i := len(deviceItems); i < len(names); i++ {
		deviceItems = append(deviceItems, addDeviceItem(i, names[i], names[i] == selected))
	}
}

func onReady() {
	systray.SetTemplateIcon(iconIdle, iconIdle)
	systray.SetTooltip(idleTooltip())

	mRecord = systray.AddMenuItem("Start Recording", "Start or stop recording")
	systray.AddSeparator()
	mCopy = systray.AddMenuItem("Copy Last Transcription", "Copy last transcription to clipboard")
	mCopy.Disable()
	mPaste = systray.AddMenuItem("Paste Last Transcription", "Paste last transcription into the focused window")
	mPaste.Disable()
	systray.AddSeparator()
	mDevices = systray.AddMenuItem("Microphone", "Select input device")

	deviceMu.Lock()
	deviceItems = make([]*systray.MenuItem, 0, len(deviceNames))
	for i, name := range deviceNames {
		deviceItems = append(deviceItems, addDeviceItem(i, name, name == deviceSel))
	}
	deviceMu.Unlock()

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit "+appName)

	go func() {
		for {
			select {
			case <-mRecord.ClickedCh:
				requestToggle()
			case <-mCopy.ClickedCh:
				if copyLastFn != nil {
					copyLastFn()
				}
			case <-mPaste.ClickedCh:
				if pasteLastFn != nil {
					pasteLastFn()
				}
			case <-mQuit.ClickedCh:
				Quit()
				return
			}
		}
	}()

	ready.Store(true)
	close(deviceReady)
}

func onExit() {
	Quit()
}
