package recorder

import "time"

const (
	tickInterval   = 100 * time.Millisecond
	warnAfter      = 8 * time.Second
	autoStopAfter  = 30 * time.Second
	speechMinRatio = 0.10
	// clearing needs more speech than warning so the flag does not flap
	speechClearRatio = 0.25
)

type silenceEvent int

const (
	silenceNone silenceEvent = iota
	silenceWarn
	silenceClear
	silenceRepeat
	silenceAutoStop
)

// silenceMonitor tracks per-tick speech flags over a sliding window the
// length of the auto-stop period.
type silenceMonitor struct {
	warnAt   int
	windowSz int
	autoStop bool

	ticks       int
	window      []bool
	speechCount int
	warned      bool
	lastWarn    int
}

func newSilenceMonitor(autoStop bool) *silenceMonitor {
	windowSz := int(autoStopAfter / tickInterval)
	return &silenceMonitor{
		warnAt:   int(warnAfter / tickInterval),
		windowSz: windowSz,
		autoStop: autoStop,
		window:   make([]bool, windowSz),
	}
}

// ratio is the speech share of the last n ticks.
func (m *silenceMonitor) ratio(n int) float64 {
	n = min(n, m.ticks)
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if m.window[(m.ticks-1-i+m.windowSz)%m.windowSz] {
			count++
		}
	}
	return float64(count) / float64(n)
}

func (m *silenceMonitor) Tick(hasSpeech bool) silenceEvent {
	idx := m.ticks % m.windowSz
	if m.ticks >= m.windowSz && m.window[idx] {
		m.speechCount--
	}
	m.window[idx] = hasSpeech
	if hasSpeech {
		m.speechCount++
	}
	m.ticks++

	r := m.ratio(m.warnAt)
	if m.ticks >= m.warnAt && r < speechMinRatio && !m.warned {
		m.warned = true
		m.lastWarn = m.ticks
		return silenceWarn
	}
	if m.warned && r >= speechClearRatio {
		m.warned = false
		return silenceClear
	}

	// auto-stop wins over a repeat falling on the same tick
	if m.autoStop && m.ticks >= m.windowSz && float64(m.speechCount)/float64(m.windowSz) < speechMinRatio {
		return silenceAutoStop
	}
	if m.warned && m.ticks-m.lastWarn >= m.warnAt {
		m.lastWarn = m.ticks
		return silenceRepeat
	}
	return silenceNone
}
