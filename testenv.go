package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"dictafield/audio"
	"dictafield/beep"
	"dictafield/config"
	"dictafield/hotkey"
	"dictafield/log"
	"dictafield/notify"
	"dictafield/recorder"
)

// runTestMode replays wavPath as the microphone and reads commands from
// stdin, one per line:
//
//	TOGGLE           start or stop recording
//	KEYDOWN, KEYUP   drive the hotkey path
//	WAIT             block until every finished recording is processed
//	WAIT_AUDIO_DONE  block until the whole file has been captured
//	SLEEP <ms>
//	QUIT
//
// Notifications, transcriptions and refreshed field values are printed to
// stdout, one line each.
func runTestMode(cfg *config.Config, wavPath string) {
	beep.Disable()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(cfg.Server.URL, cfg.Target.String(), cfg.Audio.Format)

	ctx := context.Background()
	client, err := cfg.Server.Connect(ctx)
	if err != nil {
		fatalf("connecting to %s: %v", cfg.Server.URL, err)
	}

	fakeCtx, err := audio.NewFakeContextFromWAV(wavPath, true)
	if err != nil {
		fatalf("loading WAV: %v", err)
	}

	var outMu sync.Mutex
	emit := func(format string, args ...any) {
		outMu.Lock()
		fmt.Printf(format+"\n", args...)
		outMu.Unlock()
	}
	rec, widget, err := newPipeline(ctx, cfg, fakeCtx, nil, client, surfaces{
		notifier: notify.Multi{notify.Log{}, notify.Func(func(n notify.Notification) {
			emit("NOTIFY %s %s %s", n.Type, n.Key, n.Message)
		})},
		onTranscript: func(text string) { emit("TEXT %s", text) },
		onFieldValue: func(v string) { emit("FIELD %q", v) },
	})
	if err != nil {
		fatalf("%v", err)
	}

	hk := hotkey.NewFake()
	toggler := hotkey.NewToggler(hk, cfg.Hotkey.Hold, func() bool {
		return rec.State() != recorder.StateIdle
	})
	go func() {
		for range toggler.Toggles() {
			rec.Toggle()
		}
	}()

	quit := func() {
		rec.Close()
		widget.Wait()
		log.SessionEnd(widget.Written())
		log.Close()
		os.Exit(0)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch cmd {
		case "TOGGLE":
			rec.Toggle()
		case "KEYDOWN":
			hk.SimKeydown()
		case "KEYUP":
			hk.SimKeyup()
		case "WAIT":
			widget.Wait()
		case "WAIT_AUDIO_DONE":
			if c := fakeCtx.LastCapture(); c != nil {
				<-c.AudioDone()
			}
		case "QUIT":
			quit()
		default:
			if ms, ok := strings.CutPrefix(cmd, "SLEEP "); ok {
				if n, err := strconv.Atoi(ms); err == nil {
					time.Sleep(time.Duration(n) * time.Millisecond)
				}
			}
		}
	}
	quit()
}
