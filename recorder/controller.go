// Package recorder owns the recording state machine: it opens the capture
// device, accumulates fragments while recording and assembles them into an
// encoded Recording when recording stops.
package recorder

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"dictafield/audio"
	"dictafield/encoder"
	"dictafield/log"
	"dictafield/notify"
)

type State int

const (
	StateIdle State = iota
	StateRequesting
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateRecording:
		return "recording"
	default:
		return "idle"
	}
}

var ErrEncoding = errors.New("encoding recorded audio")

// Indicator shows whether recording is in progress.
type Indicator interface {
	SetRecording(on bool)
	SetWarning(on bool)
}

// Handler receives each assembled recording on its own goroutine.
type Handler func(*Recording)

type Config struct {
	Format   encoder.Format
	AutoStop bool
	Notifier notify.Notifier
	// Indicators are updated on every state change.
	Indicators []Indicator
	// OnLevel receives the RMS level of every captured fragment.
	OnLevel func(level float64)
}

type Controller struct {
	ctx    audio.Context
	cfg    Config
	encode func(encoder.Format, []byte) ([]byte, error)

	mu      sync.Mutex
	state   State
	device  *audio.DeviceInfo
	capture audio.CaptureDevice
	stale   bool
	sess    *session
	monDone chan struct{}
	handler Handler

	pipelines sync.WaitGroup
}

func New(ctx audio.Context, device *audio.DeviceInfo, cfg Config) *Controller {
	if cfg.Format == "" {
		cfg.Format = encoder.FormatWAV
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Multi{}
	}
	return &Controller{ctx: ctx, cfg: cfg, device: device, encode: encoder.EncodePCM}
}

// OnRecording registers the handler for finished recordings.
func (c *Controller) OnRecording(h Handler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Format() encoder.Format { return c.cfg.Format }

func (c *Controller) DeviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device != nil {
		return c.device.Name
	}
	return "system default"
}

// SetDevice switches the capture device; it takes effect on the next
// recording.
func (c *Controller) SetDevice(d *audio.DeviceInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.device = d
	if c.capture != nil {
		if c.state == StateIdle {
			c.capture.Close()
			c.capture = nil
		} else {
			c.stale = true
		}
	}
	name := "system default"
	if d != nil {
		name = d.Name
	}
	log.Info("device_switch: " + name)
}

// Toggle starts recording when idle and stops it when recording. It is
// ignored while the capture device is being opened.
func (c *Controller) Toggle() {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.state = StateRequesting
		c.mu.Unlock()
		c.start()
	case StateRecording:
		c.mu.Unlock()
		c.stop("toggle", nil)
	default:
		c.mu.Unlock()
		log.Info("toggle_ignored: capture pending")
	}
}

func (c *Controller) start() {
	capture, err := c.openCapture()
	if err != nil {
		c.failStart(err)
		return
	}

	sess := newSession()
	capture.SetCallback(func(data []byte, frames uint32) {
		level := sess.add(data, frames)
		if c.cfg.OnLevel != nil {
			c.cfg.OnLevel(level)
		}
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		c.mu.Lock()
		c.capture, c.stale = nil, false
		c.mu.Unlock()
		capture.Close()
		c.failStart(err)
		return
	}

	monDone := make(chan struct{})
	c.mu.Lock()
	c.state = StateRecording
	c.sess = sess
	c.monDone = monDone
	c.mu.Unlock()

	log.Info("recording_start: session=" + sess.id + " device=" + capture.DeviceName())
	c.setRecording(true)
	c.cfg.Notifier.Add(notify.Notification{
		Key:     notify.KeyRecordingStarted,
		Message: "Recording started. Please start speaking...",
		Title:   "Recording",
		Type:    notify.Info,
	})
	go c.monitor(sess, monDone)
}

func (c *Controller) openCapture() (audio.CaptureDevice, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		return c.capture, nil
	}
	capture, err := c.ctx.NewCapture(c.device, audio.DefaultCaptureConfig())
	if err != nil {
		return nil, audio.Classify(err)
	}
	c.capture = capture
	return capture, nil
}

func (c *Controller) failStart(err error) {
	err = audio.Classify(err)
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()

	log.Errorf("microphone error: %v", err)
	c.setRecording(false)
	c.cfg.Notifier.Add(notify.Notification{
		Key:     notify.KeyMicrophoneError,
		Message: "Error accessing microphone.",
		Title:   "Error",
		Type:    notify.Danger,
	})
}

// stop ends the current recording. A non-nil from restricts it to that
// session, so a late monitor cannot end a newer recording.
func (c *Controller) stop(reason string, from *session) {
	c.mu.Lock()
	if c.state != StateRecording || (from != nil && c.sess != from) {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	sess, capture, handler := c.sess, c.capture, c.handler
	stale := c.stale
	c.sess = nil
	if stale {
		c.capture, c.stale = nil, false
	}
	close(c.monDone)
	c.mu.Unlock()

	capture.Stop()
	capture.ClearCallback()
	if stale {
		capture.Close()
	}
	pcm, chunks, frames := sess.finish()

	log.Info("recording_stop: session=" + sess.id + " reason=" + reason)
	c.setRecording(false)
	c.cfg.Notifier.Add(notify.Notification{
		Key:     notify.KeyRecordingStopped,
		Message: "Recording stopped.",
		Title:   "Recording",
		Type:    notify.Info,
	})

	rec, err := c.assemble(sess.id, pcm, frames)
	if err != nil {
		log.Errorf("session %s: %v", sess.id, err)
		c.cfg.Notifier.Add(notify.Notification{
			Key:     notify.KeyEncodingFailed,
			Message: "Failed to encode recorded audio.",
			Title:   "Error",
			Type:    notify.Danger,
		})
		return
	}
	log.Recording(log.RecordingStats{
		SessionID: sess.id,
		Chunks:    chunks,
		AudioS:    rec.Duration.Seconds(),
		RawKB:     float64(len(pcm)) / 1024,
		EncodedKB: float64(len(rec.Audio)) / 1024,
		Format:    string(c.cfg.Format),
	})

	if handler == nil {
		return
	}
	c.pipelines.Add(1)
	go func() {
		defer c.pipelines.Done()
		handler(rec)
	}()
}

func (c *Controller) assemble(id string, pcm []byte, frames uint64) (*Recording, error) {
	data, err := c.encode(c.cfg.Format, pcm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return &Recording{
		SessionID: id,
		Audio:     data,
		MIME:      c.cfg.Format.MIME(),
		Frames:    frames,
		Duration:  time.Duration(frames) * time.Second / time.Duration(encoder.SampleRate),
	}, nil
}

func (c *Controller) monitor(sess *session, done <-chan struct{}) {
	mon := newSilenceMonitor(c.cfg.AutoStop)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		switch mon.Tick(sess.takeSpeech()) {
		case silenceWarn, silenceRepeat:
			log.Info("no_voice_warning: session=" + sess.id)
			c.setWarning(true)
			c.cfg.Notifier.Add(notify.Notification{
				Key:     notify.KeyNoVoice,
				Message: "No voice detected.",
				Title:   "Recording",
				Type:    notify.Warning,
			})
		case silenceClear:
			c.setWarning(false)
			c.cfg.Notifier.Add(notify.Notification{
				Key:     notify.KeyVoiceResumed,
				Message: "Voice detected.",
				Title:   "Recording",
				Type:    notify.Info,
			})
		case silenceAutoStop:
			log.Info("silence_auto_stop: session=" + sess.id)
			c.stop("silence", sess)
			return
		}
	}
}

func (c *Controller) setRecording(on bool) {
	for _, ind := range c.cfg.Indicators {
		ind.SetRecording(on)
		if !on {
			ind.SetWarning(false)
		}
	}
}

func (c *Controller) setWarning(on bool) {
	for _, ind := range c.cfg.Indicators {
		ind.SetWarning(on)
	}
}

// Wait blocks until every handler started so far has returned.
func (c *Controller) Wait() {
	c.pipelines.Wait()
}

// Close stops an active recording and releases the capture device.
func (c *Controller) Close() {
	c.stop("shutdown", nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		c.capture.Close()
		c.capture = nil
	}
}
