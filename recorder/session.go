package recorder

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RMS of a normalized PCM16 chunk above which the chunk counts as speech.
const speechRMS = 0.015

// Recording is the assembled audio of one finished session.
type Recording struct {
	SessionID string
	Audio     []byte
	MIME      string
	Frames    uint64
	Duration  time.Duration
}

func (r *Recording) Base64() string {
	return base64.StdEncoding.EncodeToString(r.Audio)
}

// session accumulates the fragments delivered while recording. Its methods
// are called from the audio thread and the monitor goroutine.
type session struct {
	id      string
	started time.Time

	mu     sync.Mutex
	active bool
	chunks [][]byte
	frames uint64
	speech bool
	peak   float64
}

func newSession() *session {
	return &session{id: uuid.NewString(), started: time.Now(), active: true}
}

// add stores a copy of data and returns its RMS level.
func (s *session) add(data []byte, frames uint32) float64 {
	level := rms(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return level
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	s.chunks = append(s.chunks, chunk)
	s.frames += uint64(frames)
	if level >= speechRMS {
		s.speech = true
	}
	s.peak = max(s.peak, level)
	return level
}

// takeSpeech reports whether speech arrived since the previous call.
func (s *session) takeSpeech() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.speech
	s.speech = false
	return had
}

// finish deactivates the session and returns the fragments concatenated.
func (s *session) finish() (pcm []byte, chunks int, frames uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	pcm = bytes.Join(s.chunks, nil)
	chunks, frames = len(s.chunks), s.frames
	s.chunks = nil
	return pcm, chunks, frames
}

func rms(data []byte) float64 {
	n := len(data) / 2
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(data[i:]))) / 32768.0
		sumSquares += v * v
	}
	return math.Sqrt(sumSquares / float64(n))
}
