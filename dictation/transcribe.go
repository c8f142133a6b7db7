// Package dictation turns finished recordings into text appended to one
// field of one backend record.
package dictation

import (
	"context"
	"fmt"
)

const (
	RecognizeRoute   = "/voice_to_text/recognize"
	UpdateFieldRoute = "/voice_to_text/update_field"
)

// Caller issues one JSON-RPC call; *rpc.Client implements it.
type Caller interface {
	Call(ctx context.Context, route string, params, result any) error
}

type TranscriptionResponse struct {
	Status  string `json:"status"`
	Text    string `json:"text"`
	Message string `json:"message"`
}

func (r *TranscriptionResponse) OK() bool { return r.Status == "success" }

type Transcriber struct {
	rpc Caller
}

func NewTranscriber(c Caller) *Transcriber {
	return &Transcriber{rpc: c}
}

// Transcribe sends base64 audio to the recognize route. A non-success status
// is not an error; callers check OK.
func (t *Transcriber) Transcribe(ctx context.Context, audioBase64 string) (*TranscriptionResponse, error) {
	var resp TranscriptionResponse
	params := map[string]string{"audio_data": audioBase64}
	if err := t.rpc.Call(ctx, RecognizeRoute, params, &resp); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	return &resp, nil
}
