package hotkey

import "time"

// Toggler turns presses into recording toggles. A press always toggles.
// When holdFor is positive and a press that started a recording is held
// longer than holdFor, its release toggles again, so holding the combo
// works as push-to-talk.
type Toggler struct {
	ch chan struct{}
}

// NewToggler reads hk until the process exits. active reports whether a
// recording is in progress and is consulted on every press.
func NewToggler(hk Hotkey, holdFor time.Duration, active func() bool) *Toggler {
	t := &Toggler{ch: make(chan struct{}, 1)}
	go t.run(hk, holdFor, active)
	return t
}

func (t *Toggler) Toggles() <-chan struct{} { return t.ch }

func (t *Toggler) run(hk Hotkey, holdFor time.Duration, active func() bool) {
	for {
		<-hk.Keydown()
		starting := active == nil || !active()
		t.ch <- struct{}{}
		if holdFor <= 0 || !starting {
			<-hk.Keyup()
			continue
		}

		timer := time.NewTimer(holdFor)
		select {
		case <-hk.Keyup():
			timer.Stop()
		case <-timer.C:
			<-hk.Keyup()
			t.ch <- struct{}{}
		}
	}
}
