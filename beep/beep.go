// Package beep plays short synthesized cues for recording and pipeline events.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

const sampleRate = 44100

type Cue int

const (
	Start Cue = iota
	End
	Error
	Success
)

type tone struct {
	freq   float64
	dur    float64
	volume float64
	decay  float64
}

var (
	disabled atomic.Bool
	cuesOnce sync.Once
	cues     map[Cue][]int16
)

func Disable() { disabled.Store(true) }

func buildCues() {
	cues = map[Cue][]int16{
		// high short tick
		Start: synth(tone{1200, 0.2, 0.5, 60}),
		// lower, slightly longer tick
		End: synth(tone{900, 0.2, 0.5, 40}),
		// low double beep
		Error: synth(tone{350, 0.08, 0.6, 30}, tone{}, tone{350, 0.08, 0.6, 30}),
		// rising pair
		Success: synth(tone{880, 0.07, 0.4, 45}, tone{1320, 0.15, 0.4, 45}),
	}
}

// synth renders tones back to back as mono PCM16; a zero tone is a 50ms gap.
func synth(tones ...tone) []int16 {
	var out []int16
	for _, tn := range tones {
		if tn.freq == 0 {
			out = append(out, make([]int16, sampleRate/20)...)
			continue
		}
		n := int(float64(sampleRate) * tn.dur)
		for i := 0; i < n; i++ {
			t := float64(i) / float64(sampleRate)
			env := math.Exp(-t * tn.decay)
			out = append(out, int16(math.Sin(2*math.Pi*tn.freq*t)*32767*tn.volume*env))
		}
	}
	return out
}

func Init() {
	cuesOnce.Do(buildCues)
}

// Play starts the cue asynchronously.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	cuesOnce.Do(buildCues)
	if samples := cues[c]; len(samples) > 0 {
		go play(samples)
	}
}
