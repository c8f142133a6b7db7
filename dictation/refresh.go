package dictation

import (
	"context"
	"fmt"
)

type Refresher interface {
	Refresh(ctx context.Context, b FieldBinding) error
}

// RecordReader refreshes by reading the bound field back from the server
// and handing the value to OnValue.
type RecordReader struct {
	rpc     Caller
	OnValue func(b FieldBinding, value string)
}

func NewRecordReader(c Caller, onValue func(FieldBinding, string)) *RecordReader {
	return &RecordReader{rpc: c, OnValue: onValue}
}

func (r *RecordReader) Read(ctx context.Context, b FieldBinding) (string, error) {
	params := map[string]any{
		"model":  b.Model,
		"method": "read",
		"args":   []any{[]int{b.RecordID}, []string{b.Field}},
		"kwargs": map[string]any{},
	}
	var rows []map[string]any
	if err := r.rpc.Call(ctx, "/web/dataset/call_kw/"+b.Model+"/read", params, &rows); err != nil {
		return "", fmt.Errorf("read %s: %w", b, err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("read %s: record not found", b)
	}
	// empty text fields come back as false
	s, _ := rows[0][b.Field].(string)
	return s, nil
}

func (r *RecordReader) Refresh(ctx context.Context, b FieldBinding) error {
	v, err := r.Read(ctx, b)
	if err != nil {
		return err
	}
	if r.OnValue != nil {
		r.OnValue(b, v)
	}
	return nil
}
