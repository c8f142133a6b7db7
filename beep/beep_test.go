package beep

import "testing"

func TestCuesRendered(t *testing.T) {
	Init()
	for _, c := range []Cue{Start, End, Error, Success} {
		if len(cues[c]) == 0 {
			t.Errorf("cue %d has no samples", c)
		}
	}
	// error cue is two beeps with a gap
	single := len(synth(tone{350, 0.08, 0.6, 30}))
	if got, want := len(cues[Error]), 2*single+sampleRate/20; got != want {
		t.Errorf("error cue length = %d, want %d", got, want)
	}
}

func TestDisabledPlayIsNoop(t *testing.T) {
	Disable()
	Play(Start)
}
