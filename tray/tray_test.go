package tray

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"strings"
	"testing"
)

func TestIconsArePNG(t *testing.T) {
	for name, icon := range map[string][]byte{"idle": iconIdle, "rec": iconRec, "warn": iconWarn} {
		data := icon
		if bytes.HasPrefix(data, []byte{0, 0, 1, 0}) {
			data = data[22:]
		}
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if img.Bounds().Dx() != 44 {
			t.Errorf("%s: width %d", name, img.Bounds().Dx())
		}
	}
}

func TestWrapICO(t *testing.T) {
	payload := []byte("\x89PNG fake")
	ico := wrapICO(payload, 44)
	if len(ico) != 22+len(payload) {
		t.Fatalf("len = %d", len(ico))
	}
	if binary.LittleEndian.Uint16(ico[2:]) != 1 || binary.LittleEndian.Uint16(ico[4:]) != 1 {
		t.Error("bad ICO header")
	}
	if ico[6] != 44 {
		t.Errorf("width byte = %d", ico[6])
	}
	if binary.LittleEndian.Uint32(ico[14:]) != uint32(len(payload)) || binary.LittleEndian.Uint32(ico[18:]) != 22 {
		t.Error("bad directory entry")
	}
	if !bytes.Equal(ico[22:], payload) {
		t.Error("payload not embedded")
	}
}

func TestStateWithoutTray(t *testing.T) {
	SetTarget("crm.lead#7.voice_to_text")
	if got := idleTooltip(); got != "dictafield – crm.lead#7.voice_to_text" {
		t.Errorf("tooltip = %q", got)
	}

	var ind Indicator
	ind.SetWarning(true)
	if warning {
		t.Error("warning set while idle")
	}
	ind.SetRecording(true)
	ind.SetWarning(true)
	if !IsRecording() || !warning {
		t.Error("recording state not kept")
	}
	ind.SetRecording(false)
	if IsRecording() || warning {
		t.Error("stop did not clear state")
	}
}

func TestRequestToggleNeverBlocks(t *testing.T) {
	requestToggle()
	requestToggle()
	<-Toggles()
	select {
	case <-Toggles():
		t.Error("second toggle should have been dropped")
	default:
	}
}

func TestLastTitle(t *testing.T) {
	if got := lastTitle("short"); got != "short" {
		t.Errorf("lastTitle = %q", got)
	}
	long := strings.Repeat("é", 40)
	if got := lastTitle(long); len([]rune(got)) != 33 || !strings.HasSuffix(got, "…") {
		t.Errorf("lastTitle(long) = %q", got)
	}
}

func TestDeviceDisplayName(t *testing.T) {
	SetBTCheck(func(n string) bool { return strings.Contains(n, "AirPods") })
	defer SetBTCheck(nil)
	if got := deviceDisplayName("AirPods"); !strings.Contains(got, "Lower audio quality") {
		t.Errorf("got %q", got)
	}
	if got := deviceDisplayName("Built-in"); got != "Built-in" {
		t.Errorf("got %q", got)
	}
}
