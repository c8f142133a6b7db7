package main

import (
	"context"
	"slices"
	"sync"
	"time"

	"dictafield/audio"
	"dictafield/log"
	"dictafield/recorder"
	"dictafield/tray"
)

const devicePollInterval = 3 * time.Second

// deviceManager tracks the chosen microphone. The preferred device is the
// user's last explicit choice; while it is unplugged the recorder falls back
// to the system default and switches back when it reappears.
type deviceManager struct {
	actx audio.Context
	rec  *recorder.Controller

	mu        sync.Mutex
	preferred string
	selected  string
}

func newDeviceManager(actx audio.Context, rec *recorder.Controller, dev *audio.DeviceInfo) *deviceManager {
	d := &deviceManager{actx: actx, rec: rec}
	if dev != nil {
		d.preferred, d.selected = dev.Name, dev.Name
	}
	return d
}

func (d *deviceManager) names() ([]string, error) {
	devices, err := d.actx.Devices()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(devices))
	for i := range devices {
		names[i] = devices[i].Name
	}
	return names, nil
}

// switchTo selects the named device, or the system default for "".
func (d *deviceManager) switchTo(name string) {
	var dev *audio.DeviceInfo
	if name != "" {
		var err error
		dev, err = audio.FindDevice(d.actx, name)
		if err != nil || dev == nil {
			log.Warnf("device %q not found", name)
			return
		}
	}
	d.rec.SetDevice(dev)
	d.mu.Lock()
	d.selected = name
	d.mu.Unlock()
	tuiSend(DeviceMsg{Name: d.rec.DeviceName()})
}

func (d *deviceManager) prefer(name string) {
	d.mu.Lock()
	d.preferred = name
	d.mu.Unlock()
	d.switchTo(name)
}

func (d *deviceManager) attachTray() {
	names, err := d.names()
	if err != nil || len(names) == 0 {
		return
	}
	d.mu.Lock()
	sel := d.selected
	d.mu.Unlock()
	tray.SetDevices(names, sel, d.prefer)
}

// choose runs the interactive picker, suspending the TUI meanwhile.
func (d *deviceManager) choose() {
	if d.rec.State() != recorder.StateIdle {
		return
	}
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.ReleaseTerminal()
	}
	dev, err := audio.SelectDevice(d.actx)
	if p != nil {
		p.RestoreTerminal()
	}
	if err != nil {
		log.Warnf("device selection failed: %v", err)
		return
	}
	d.prefer(dev.Name)
	if names, err := d.names(); err == nil {
		tray.RefreshDevices(names, dev.Name)
	}
}

// poll watches for hotplug changes until ctx is done.
func (d *deviceManager) poll(ctx context.Context, withTray bool) {
	var last []string
	ticker := time.NewTicker(devicePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		names, err := d.names()
		if err != nil || slices.Equal(last, names) {
			continue
		}
		last = names

		d.mu.Lock()
		sel, pref := d.selected, d.preferred
		d.mu.Unlock()
		switch {
		case sel != "" && !slices.Contains(names, sel):
			log.Info("device_disconnected: " + sel)
			d.switchTo("")
			sel = ""
		case sel == "" && pref != "" && slices.Contains(names, pref):
			log.Info("device_reconnected: " + pref)
			d.switchTo(pref)
			sel = pref
		}
		if withTray {
			tray.RefreshDevices(names, sel)
		}
	}
}
