//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"dictafield/log"
)

var (
	devOnce  sync.Once
	devMu    sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	// read from the audio callback
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
)

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: fill})
	return err
}

func openDevice() {
	var err error
	malgoCtx, err = malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		log.Warnf("beep: malgo context: %v", err)
		return
	}
	if err := initDevice(); err != nil {
		log.Warnf("beep: malgo device: %v", err)
		_ = malgoCtx.Uninit()
		malgoCtx = nil
	}
}

func fill(out, _ []byte, frameCount uint32) {
	clear(out)
	data := current.Load()
	if data == nil {
		return
	}
	p := pos.Load()
	remaining := uint32(len(*data)) - p
	if remaining == 0 {
		current.Store(nil)
		return
	}
	n := min(frameCount*2, remaining)
	copy(out[:n], (*data)[p:p+n])
	pos.Store(p + n)
}

func play(samples []int16) {
	devOnce.Do(openDevice)
	if malgoCtx == nil {
		return
	}

	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	devMu.Lock()
	defer devMu.Unlock()
	if device == nil {
		return
	}
	_ = device.Stop()
	pos.Store(0)
	current.Store(&buf)
	if err := device.Start(); err != nil {
		// recreate after sleep/wake invalidated the device
		device.Uninit()
		if err := initDevice(); err != nil {
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			current.Store(nil)
		}
	}
}
