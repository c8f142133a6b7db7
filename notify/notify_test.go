package notify

import (
	"testing"
	"time"

	"dictafield/beep"
)

func TestMultiSkipsNil(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, nil, &b}
	m.Add(Notification{Key: KeyProcessing, Message: "Processing transcription..."})

	if len(a.All()) != 1 || len(b.All()) != 1 {
		t.Fatalf("fan-out: a=%d b=%d", len(a.All()), len(b.All()))
	}
}

func TestRecorderFindLast(t *testing.T) {
	var r Recorder
	r.Add(Notification{Key: KeyTranscribeFailed, Message: "first"})
	r.Add(Notification{Key: KeyProcessing})
	r.Add(Notification{Key: KeyTranscribeFailed, Message: "second"})

	n, ok := r.Find(KeyTranscribeFailed)
	if !ok || n.Message != "second" {
		t.Errorf("Find = %+v, %v", n, ok)
	}
	if _, ok := r.Find(KeyFieldUpdated); ok {
		t.Error("Find returned a key never added")
	}
	if got := r.Keys(); len(got) != 3 || got[1] != KeyProcessing {
		t.Errorf("Keys = %v", got)
	}
}

func TestFuncAdapter(t *testing.T) {
	var got Notification
	var n Notifier = Func(func(x Notification) { got = x })
	n.Add(Notification{Message: "hi"})
	if got.Message != "hi" {
		t.Errorf("got %q", got.Message)
	}
}

type shown struct {
	title, message string
	alert          bool
}

func fakeDesktop(min Type) (*Desktop, chan shown) {
	ch := make(chan shown, 4)
	d := NewDesktop("dictafield", min)
	d.notify = func(t, m string, _ any) error { ch <- shown{t, m, false}; return nil }
	d.alert = func(t, m string, _ any) error { ch <- shown{t, m, true}; return nil }
	return d, ch
}

func TestDesktopFiltersByType(t *testing.T) {
	d, ch := fakeDesktop(Warning)
	d.Add(Notification{Title: "Recording", Message: "Recording stopped.", Type: Info})
	d.Add(Notification{Title: "Error", Message: "Failed to save text to the field.", Type: Danger})

	select {
	case s := <-ch:
		if s.title != "dictafield: Error" || s.message != "Failed to save text to the field." {
			t.Errorf("shown = %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("danger notification not shown")
	}
	select {
	case s := <-ch:
		t.Errorf("info notification should be filtered: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDesktopStickyUsesAlert(t *testing.T) {
	d, ch := fakeDesktop(Info)
	d.Add(Notification{Message: "No voice detected.", Type: Warning, Sticky: true})
	select {
	case s := <-ch:
		if !s.alert {
			t.Error("sticky notification not shown as alert")
		}
	case <-time.After(time.Second):
		t.Fatal("nothing shown")
	}
}

func TestSoundsCues(t *testing.T) {
	var played []beep.Cue
	s := &Sounds{play: func(c beep.Cue) { played = append(played, c) }}
	for _, k := range []Key{KeyRecordingStarted, KeyProcessing, KeyFieldUpdated, KeyTranscribeFailed} {
		s.Add(Notification{Key: k})
	}
	want := []beep.Cue{beep.Start, beep.Success, beep.Error}
	if len(played) != len(want) {
		t.Fatalf("played %v, want %v", played, want)
	}
	for i := range want {
		if played[i] != want[i] {
			t.Errorf("cue %d = %v, want %v", i, played[i], want[i])
		}
	}
}
