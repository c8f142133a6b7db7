package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
		want error
	}{
		{"fs permission", fmt.Errorf("open /dev/snd: %w", fs.ErrPermission), ErrPermissionDenied},
		{"message", errors.New("Access denied by user"), ErrPermissionDenied},
		{"connection refused", errors.New("dial unix /run/user/1000/pulse/native: connect: connection refused"), ErrDeviceUnavailable},
		{"already classified", ErrPermissionDenied, ErrPermissionDenied},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("Classify(%v) = %v, want %v in chain", tt.err, got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("original error lost from chain: %v", got)
			}
		})
	}
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestIsBluetooth(t *testing.T) {
	if !IsBluetooth("AirPods Pro") {
		t.Error("AirPods should be detected")
	}
	if IsBluetooth("Built-in Microphone") {
		t.Error("built-in mic misdetected")
	}
}

func TestFakeCaptureDeliversBuffer(t *testing.T) {
	pcm := make([]byte, fakeFrameSize*BytesPerSample*2+10)
	ctx := NewFakeContext(pcm, false)
	capture, err := ctx.NewCapture(nil, DefaultCaptureConfig())
	if err != nil {
		t.Fatal(err)
	}

	var got int
	var frames uint32
	capture.SetCallback(func(data []byte, n uint32) {
		got += len(data)
		frames += n
	})
	if err := capture.Start(); err != nil {
		t.Fatal(err)
	}
	capture.Stop()
	capture.ClearCallback()

	if got != len(pcm) {
		t.Errorf("delivered %d bytes, want %d", got, len(pcm))
	}
	if frames != uint32(len(pcm)/BytesPerSample) {
		t.Errorf("frames = %d, want %d", frames, len(pcm)/BytesPerSample)
	}
}

func TestFakeCaptureStartErr(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	ctx.StartErr = ErrPermissionDenied
	capture, _ := ctx.NewCapture(nil, DefaultCaptureConfig())
	if err := capture.Start(); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Start() = %v, want ErrPermissionDenied", err)
	}
}

func TestFindDevice(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	dev, err := FindDevice(ctx, "fake")
	if err != nil || dev == nil {
		t.Fatalf("FindDevice(fake) = %v, %v", dev, err)
	}
	dev, _ = FindDevice(ctx, "missing")
	if dev != nil {
		t.Errorf("FindDevice(missing) = %v, want nil", dev)
	}
}

func TestRenderDeviceList(t *testing.T) {
	var buf bytes.Buffer
	renderDeviceList(&buf, []DeviceInfo{{Name: "Built-in"}, {Name: "Jabra Evolve"}}, 1)
	out := buf.String()
	if !strings.Contains(out, "▶ Jabra Evolve") {
		t.Errorf("cursor not on second device: %q", out)
	}
	if !strings.Contains(out, "bluetooth") {
		t.Errorf("bluetooth tag missing: %q", out)
	}
}
