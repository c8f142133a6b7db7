package recorder

import "testing"

func feedN(m *silenceMonitor, speech bool, n int) silenceEvent {
	var last silenceEvent
	for i := 0; i < n; i++ {
		last = m.Tick(speech)
	}
	return last
}

func TestSilenceWarnAfter8s(t *testing.T) {
	m := newSilenceMonitor(false)
	for i := 0; i < 79; i++ {
		if ev := m.Tick(false); ev != silenceNone {
			t.Fatalf("unexpected event at tick %d: %d", i, ev)
		}
	}
	if ev := m.Tick(false); ev != silenceWarn {
		t.Fatalf("expected silenceWarn at tick 80, got %d", ev)
	}
}

func TestSilenceWarnClearsOnSpeech(t *testing.T) {
	m := newSilenceMonitor(false)
	feedN(m, false, 80)
	for i := 0; i < 80; i++ {
		if m.Tick(true) == silenceClear {
			return
		}
	}
	t.Fatal("expected silenceClear after speech")
}

func TestNoWarnDuringSpeech(t *testing.T) {
	m := newSilenceMonitor(true)
	for i := 0; i < 400; i++ {
		if ev := m.Tick(true); ev != silenceNone {
			t.Fatalf("unexpected event %d during speech at tick %d", ev, i)
		}
	}
}

func TestSilenceRepeatEvery8s(t *testing.T) {
	m := newSilenceMonitor(false)
	feedN(m, false, 80)
	for i := 1; i < 80; i++ {
		if ev := m.Tick(false); ev != silenceNone {
			t.Fatalf("unexpected event %d at tick %d after warn", ev, i)
		}
	}
	if ev := m.Tick(false); ev != silenceRepeat {
		t.Fatalf("expected silenceRepeat 8s after warn, got %d", ev)
	}
}

func TestAutoStopAfter30s(t *testing.T) {
	m := newSilenceMonitor(true)
	for i := 0; i < 400; i++ {
		ev := m.Tick(false)
		if ev == silenceAutoStop {
			if i != 299 {
				t.Fatalf("auto-stop at tick %d, want 299", i)
			}
			return
		}
		if i >= 299 && ev == silenceRepeat {
			t.Fatalf("silenceRepeat fired at tick %d instead of auto-stop", i)
		}
	}
	t.Fatal("expected silenceAutoStop within 400 ticks")
}

func TestNoAutoStopWhenDisabled(t *testing.T) {
	m := newSilenceMonitor(false)
	for i := 0; i < 400; i++ {
		if m.Tick(false) == silenceAutoStop {
			t.Fatalf("unexpected auto-stop at tick %d", i)
		}
	}
}

func TestAutoStopPreventedBySpeech(t *testing.T) {
	m := newSilenceMonitor(true)
	for i := 0; i < 500; i++ {
		if m.Tick(i%10 < 7) == silenceAutoStop {
			t.Fatalf("unexpected auto-stop with speech at tick %d", i)
		}
	}
}

func TestWarnOnlyOnce(t *testing.T) {
	m := newSilenceMonitor(false)
	warns := 0
	for i := 0; i < 120; i++ {
		if m.Tick(false) == silenceWarn {
			warns++
		}
	}
	if warns != 1 {
		t.Errorf("warned %d times, want 1", warns)
	}
}
