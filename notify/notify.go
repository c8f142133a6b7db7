// Package notify carries user-facing status messages from the dictation
// pipeline to whatever surfaces are active: the TUI feed, desktop
// notifications, sound cues and the diagnostics log.
package notify

import "sync"

type Type string

const (
	Info    Type = "info"
	Success Type = "success"
	Warning Type = "warning"
	Danger  Type = "danger"
)

// Key identifies the pipeline event behind a notification so surfaces can
// react to it without parsing the message.
type Key string

const (
	KeyRecordingStarted  Key = "recording_started"
	KeyRecordingStopped  Key = "recording_stopped"
	KeyMicrophoneError   Key = "microphone_error"
	KeyNoVoice           Key = "no_voice"
	KeyVoiceResumed      Key = "voice_resumed"
	KeyEncodingFailed    Key = "encoding_failed"
	KeyProcessing        Key = "processing"
	KeyTranscribed       Key = "transcribed"
	KeyTranscribeFailed  Key = "transcribe_failed"
	KeyEmptyTranscript   Key = "empty_transcript"
	KeyFieldUpdated      Key = "field_updated"
	KeyFieldUpdateFailed Key = "field_update_failed"
	KeySessionExpired    Key = "session_expired"
)

type Notification struct {
	Key     Key
	Message string
	Title   string
	Type    Type
	Sticky  bool
}

type Notifier interface {
	Add(n Notification)
}

// Func adapts a plain function to Notifier.
type Func func(Notification)

func (f Func) Add(n Notification) { f(n) }

// Multi fans a notification out to every non-nil notifier in order.
type Multi []Notifier

func (m Multi) Add(n Notification) {
	for _, t := range m {
		if t != nil {
			t.Add(n)
		}
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu   sync.Mutex
	list []Notification
}

func (r *Recorder) Add(n Notification) {
	r.mu.Lock()
	r.list = append(r.list, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.list...)
}

func (r *Recorder) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]Key, len(r.list))
	for i, n := range r.list {
		keys[i] = n.Key
	}
	return keys
}

// Find returns the last notification with the given key.
func (r *Recorder) Find(k Key) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.list) - 1; i >= 0; i-- {
		if r.list[i].Key == k {
			return r.list[i], true
		}
	}
	return Notification{}, false
}
