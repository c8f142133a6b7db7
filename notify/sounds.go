package notify

import "dictafield/beep"

var cueFor = map[Key]beep.Cue{
	KeyRecordingStarted:  beep.Start,
	KeyRecordingStopped:  beep.End,
	KeyMicrophoneError:   beep.Error,
	KeyNoVoice:           beep.Error,
	KeyEncodingFailed:    beep.Error,
	KeyTranscribeFailed:  beep.Error,
	KeyFieldUpdateFailed: beep.Error,
	KeySessionExpired:    beep.Error,
	KeyFieldUpdated:      beep.Success,
}

// Sounds plays a cue for the pipeline events that have one.
type Sounds struct {
	play func(beep.Cue)
}

func NewSounds() *Sounds {
	beep.Init()
	return &Sounds{play: beep.Play}
}

func (s *Sounds) Add(n Notification) {
	if c, ok := cueFor[n.Key]; ok {
		s.play(c)
	}
}
