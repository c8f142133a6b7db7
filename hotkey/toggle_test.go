package hotkey

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitToggle(t *testing.T, tg *Toggler) {
	t.Helper()
	select {
	case <-tg.Toggles():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for toggle")
	}
}

func noToggle(t *testing.T, tg *Toggler) {
	t.Helper()
	select {
	case <-tg.Toggles():
		t.Fatal("unexpected toggle")
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeRecorder flips its state on every toggle it consumes.
func consume(t *testing.T, tg *Toggler, rec *atomic.Bool) {
	t.Helper()
	waitToggle(t, tg)
	rec.Store(!rec.Load())
}

func TestTapToggles(t *testing.T) {
	fk := NewFake()
	var rec atomic.Bool
	tg := NewToggler(fk, 200*time.Millisecond, rec.Load)

	fk.SimTap()
	consume(t, tg, &rec)
	noToggle(t, tg)
	if !rec.Load() {
		t.Fatal("not recording after tap")
	}

	fk.SimTap()
	consume(t, tg, &rec)
	noToggle(t, tg)
	if rec.Load() {
		t.Fatal("still recording after second tap")
	}
}

func TestHoldIsPushToTalk(t *testing.T) {
	fk := NewFake()
	var rec atomic.Bool
	hold := 50 * time.Millisecond
	tg := NewToggler(fk, hold, rec.Load)

	fk.SimKeydown()
	consume(t, tg, &rec)
	time.Sleep(hold + 20*time.Millisecond)
	fk.SimKeyup()
	consume(t, tg, &rec)
	if rec.Load() {
		t.Fatal("release after hold did not stop")
	}
}

func TestHoldWhileRecordingStopsOnce(t *testing.T) {
	fk := NewFake()
	var rec atomic.Bool
	rec.Store(true)
	hold := 30 * time.Millisecond
	tg := NewToggler(fk, hold, rec.Load)

	fk.SimKeydown()
	consume(t, tg, &rec)
	time.Sleep(hold + 20*time.Millisecond)
	fk.SimKeyup()
	noToggle(t, tg)
	if rec.Load() {
		t.Fatal("press while recording did not stop")
	}
}

func TestNoHoldMode(t *testing.T) {
	fk := NewFake()
	tg := NewToggler(fk, 0, nil)

	fk.SimKeydown()
	waitToggle(t, tg)
	time.Sleep(20 * time.Millisecond)
	fk.SimKeyup()
	noToggle(t, tg)
}

func TestParseCombo(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Combo
		err  bool
	}{
		{in: "ctrl+shift+space", want: Combo{Ctrl: true, Shift: true, Key: "space"}},
		{in: " Ctrl+D ", want: Combo{Ctrl: true, Key: "d"}},
		{in: "f9", want: Combo{Key: "f9"}},
		{in: "space", err: true},
		{in: "alt+space", err: true},
		{in: "ctrl+enter", err: true},
	} {
		got, err := ParseCombo(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseCombo(%q) err = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCombo(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if s := (Combo{Ctrl: true, Shift: true, Key: "space"}).String(); s != DefaultCombo {
		t.Errorf("String() = %q", s)
	}
}
