// Package doctor runs interactive checks of everything dictation depends
// on: the backend and target record, the microphone, the hotkey and the
// clipboard.
package doctor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"dictafield/audio"
	"dictafield/clipboard"
	"dictafield/config"
	"dictafield/dictation"
	"dictafield/encoder"
	"dictafield/hotkey"
	"dictafield/notify"
	"dictafield/recorder"
	"dictafield/rpc"
	"dictafield/shutdown"
)

const (
	sampleLength = 3 * time.Second
	checkTimeout = 30 * time.Second
)

type checker struct {
	ctx    context.Context
	cfg    *config.Config
	n, of  int
	client *rpc.Client
	sample *recorder.Recording
}

func (c *checker) step(title string) {
	c.n++
	fmt.Println()
	fmt.Printf("[%d/%d] %s\n", c.n, c.of, title)
}

func pass(format string, args ...any) bool {
	fmt.Printf("  PASS: "+format+"\n", args...)
	return true
}

func fail(format string, args ...any) bool {
	fmt.Printf("  FAIL: "+format+"\n", args...)
	return false
}

// Run executes the checks against cfg and returns an exit code (0=all pass,
// 1=any fail). Checks that depend on a failed one are skipped.
func Run(cfg *config.Config) int {
	resetTerminal()
	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	fmt.Println("dictafield doctor - interactive system diagnostics")
	fmt.Println("==================================================")

	c := &checker{ctx: ctx, cfg: cfg, of: 6}
	allPass := true
	if c.checkServer() {
		allPass = c.checkTarget() && allPass
	} else {
		allPass = false
		c.n++
	}
	if c.checkMicrophone() {
		if c.client != nil {
			allPass = c.checkTranscription() && allPass
		} else {
			c.n++
		}
	} else {
		allPass = false
		c.n++
	}
	allPass = c.checkHotkey() && allPass
	allPass = c.checkClipboard() && allPass

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func (c *checker) checkServer() bool {
	c.step("Backend connection")
	if err := c.cfg.Validate(); err != nil {
		return fail("%v", err)
	}
	ctx, cancel := context.WithTimeout(c.ctx, checkTimeout)
	defer cancel()

	client, err := rpc.New(c.cfg.Server.URL, rpc.Options{Timeout: c.cfg.Server.Timeout})
	if err != nil {
		return fail("%v", err)
	}
	v, err := client.Version(ctx)
	if err != nil {
		return fail("cannot reach %s: %v", c.cfg.Server.URL, err)
	}
	fmt.Printf("  Server version %s\n", v)

	client, err = c.cfg.Server.Connect(ctx)
	if err != nil {
		return fail("cannot open session: %v", err)
	}
	c.client = client
	return pass("session open on %s", c.cfg.Server.URL)
}

func (c *checker) checkTarget() bool {
	c.step("Target field")
	ctx, cancel := context.WithTimeout(c.ctx, checkTimeout)
	defer cancel()

	v, err := dictation.NewRecordReader(c.client, nil).Read(ctx, c.cfg.Target)
	if err != nil {
		return fail("%v", err)
	}
	return pass("%s readable, %d characters", c.cfg.Target, len(v))
}

func (c *checker) checkMicrophone() bool {
	c.step("Microphone")
	actx, err := audio.NewContext()
	if err != nil {
		return fail("cannot connect to audio: %v", err)
	}
	defer actx.Close()

	var device *audio.DeviceInfo
	if name := c.cfg.Audio.Device; name != "" {
		if device, _ = audio.FindDevice(actx, name); device == nil {
			return fail("configured device %q not found (run: dictafield -setup)", name)
		}
	}

	format, err := encoder.ParseFormat(c.cfg.Audio.Format)
	if err != nil {
		return fail("%v", err)
	}
	var (
		mu       sync.Mutex
		peak     float64
		problems []string
	)
	rec := recorder.New(actx, device, recorder.Config{
		Format: format,
		OnLevel: func(l float64) {
			mu.Lock()
			peak = max(peak, l)
			mu.Unlock()
		},
		Notifier: notify.Func(func(n notify.Notification) {
			if n.Type == notify.Danger {
				mu.Lock()
				problems = append(problems, n.Message)
				mu.Unlock()
			}
		}),
	})
	report := func(extra ...string) string {
		mu.Lock()
		defer mu.Unlock()
		return strings.Join(append(append([]string(nil), problems...), extra...), "; ")
	}
	got := make(chan *recorder.Recording, 1)
	rec.OnRecording(func(r *recorder.Recording) { got <- r })
	defer rec.Close()

	fmt.Printf("  Using %s. Speak for %s", rec.DeviceName(), sampleLength)
	rec.Toggle()
	if rec.State() != recorder.StateRecording {
		fmt.Println()
		return fail("%s", report())
	}
	for range sampleLength / (500 * time.Millisecond) {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	rec.Toggle()
	fmt.Println(" done")

	select {
	case r := <-got:
		c.sample = r
	case <-time.After(5 * time.Second):
		return fail("%s", report("no recording produced"))
	}
	mu.Lock()
	fmt.Printf("  Captured %.1fs, %.1f KB %s, peak level %.3f\n",
		c.sample.Duration.Seconds(), float64(len(c.sample.Audio))/1024, c.sample.MIME, peak)
	mu.Unlock()
	if c.sample.Frames == 0 {
		return fail("no audio captured")
	}
	if device != nil && audio.IsBluetooth(device.Name) {
		fmt.Println("  Warning: bluetooth microphones record at reduced quality")
	}
	return pass("microphone captures audio")
}

func (c *checker) checkTranscription() bool {
	c.step("Speech recognition")
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Server.Timeout+time.Second)
	defer cancel()

	resp, err := dictation.NewTranscriber(c.client).Transcribe(ctx, c.sample.Base64())
	if err != nil {
		return fail("%v", err)
	}
	if !resp.OK() {
		return fail("server answered %q: %s", resp.Status, resp.Message)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Printf("\n  Transcribed text: %s\n", text)
	return pass("recognition works (the field was not modified)")
}

func (c *checker) checkHotkey() bool {
	c.step("Hotkey detection")
	combo, err := hotkey.ParseCombo(c.cfg.Hotkey.Combo)
	if err != nil {
		return fail("%v", err)
	}
	msg, err := hotkey.Diagnose(combo)
	if err != nil {
		return fail("%v", err)
	}
	fmt.Printf("  %s\n", msg)
	fmt.Printf("Press %s...\n", combo)

	hk := hotkey.New(combo)
	if err := hk.Register(); err != nil {
		return fail("could not register hotkey: %v", err)
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		// the grab can leave the terminal in raw mode
		resetTerminal()
		return pass("hotkey detected")
	case <-time.After(10 * time.Second):
		return fail("timeout waiting for hotkey")
	case <-c.ctx.Done():
		return fail("interrupted")
	}
}

func (c *checker) checkClipboard() bool {
	c.step("Clipboard")
	if !clipboard.Available() {
		return fail("no clipboard utility found (install xclip, xsel or wl-clipboard)")
	}

	testStr := fmt.Sprintf("dictafield-doctor-%d", time.Now().UnixNano())
	type result struct {
		readback string
		err      error
		phase    string
	}
	ch := make(chan result, 1)
	go func() {
		if err := clipboard.Copy(testStr); err != nil {
			ch <- result{err: err, phase: "write"}
			return
		}
		got, err := clipboard.Read()
		if err != nil {
			ch <- result{err: err, phase: "read"}
			return
		}
		ch <- result{readback: got}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return fail("clipboard %s failed: %v", res.phase, res.err)
		}
		if res.readback != testStr {
			return fail("clipboard mismatch: wrote %q, got %q", testStr, res.readback)
		}
	case <-time.After(3 * time.Second):
		return fail("clipboard timed out (clipboard tool hung - compositor not accessible?)")
	}

	if err := clipboard.Init(); err != nil {
		fmt.Printf("  Warning: paste unavailable: %v\n", err)
		if _, statErr := os.Stat("/dev/uinput"); statErr == nil {
			fmt.Println("  Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}
	return pass("clipboard write/read verified")
}
