package dictation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dictafield/internal/validate"
)

var ErrEmptyTranscription = errors.New("no transcription to save")

// FieldBinding names the record field transcriptions are appended to.
type FieldBinding struct {
	Model    string `yaml:"model" validate:"required"`
	Field    string `yaml:"field" validate:"required"`
	RecordID int    `yaml:"record_id" validate:"gt=0"`
}

func (b FieldBinding) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("field binding: %w", err)
	}
	return nil
}

func (b FieldBinding) String() string {
	return fmt.Sprintf("%s#%d.%s", b.Model, b.RecordID, b.Field)
}

type FieldUpdateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type FieldWriter struct {
	rpc Caller
}

func NewFieldWriter(c Caller) *FieldWriter {
	return &FieldWriter{rpc: c}
}

// WriteField asks the server to append transcription to the bound field.
// Whitespace-only text is rejected without a call.
func (w *FieldWriter) WriteField(ctx context.Context, transcription string, b FieldBinding) (*FieldUpdateResponse, error) {
	if strings.TrimSpace(transcription) == "" {
		return nil, ErrEmptyTranscription
	}
	params := map[string]any{
		"field":     b.Field,
		"model":     b.Model,
		"script":    transcription,
		"record_id": b.RecordID,
	}
	var resp FieldUpdateResponse
	if err := w.rpc.Call(ctx, UpdateFieldRoute, params, &resp); err != nil {
		return nil, fmt.Errorf("update %s: %w", b, err)
	}
	return &resp, nil
}
