package dictation

import (
	"context"
	"errors"
	"sync"
	"time"

	"dictafield/log"
	"dictafield/notify"
	"dictafield/recorder"
	"dictafield/rpc"
)

type Options struct {
	// Refresher runs after every successful transcription.
	Refresher Refresher
	// OnTranscript receives the text of every successful transcription.
	OnTranscript func(text string)
}

// Widget binds a recorder to one record field: each finished recording is
// transcribed and the text appended to the field, with a notification at
// every outcome.
type Widget struct {
	ctx         context.Context
	rec         *recorder.Controller
	binding     FieldBinding
	transcriber *Transcriber
	writer      *FieldWriter
	notifier    notify.Notifier
	opts        Options

	mu       sync.Mutex
	lastText string
	written  int
}

// NewWidget registers itself as rec's recording handler. ctx bounds the
// remote calls of every pipeline.
func NewWidget(ctx context.Context, rec *recorder.Controller, c Caller, b FieldBinding, n notify.Notifier, opts Options) (*Widget, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if n == nil {
		n = notify.Multi{}
	}
	w := &Widget{
		ctx:         ctx,
		rec:         rec,
		binding:     b,
		transcriber: NewTranscriber(c),
		writer:      NewFieldWriter(c),
		notifier:    n,
		opts:        opts,
	}
	rec.OnRecording(w.process)
	return w, nil
}

func (w *Widget) Toggle() { w.rec.Toggle() }

func (w *Widget) State() recorder.State { return w.rec.State() }

// Wait blocks until every pipeline started so far has finished.
func (w *Widget) Wait() { w.rec.Wait() }

func (w *Widget) LastText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastText
}

// Written returns how many transcriptions were saved to the field.
func (w *Widget) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *Widget) add(key notify.Key, typ notify.Type, title, message string) {
	w.notifier.Add(notify.Notification{Key: key, Type: typ, Title: title, Message: message})
}

func (w *Widget) process(rec *recorder.Recording) {
	w.add(notify.KeyProcessing, notify.Info, "Processing", "Processing transcription...")

	start := time.Now()
	resp, err := w.transcriber.Transcribe(w.ctx, rec.Base64())
	if rpc.IsSessionExpired(err) {
		w.sessionExpired(err)
		return
	}
	if err != nil {
		log.Errorf("session %s: %v", rec.SessionID, err)
		w.add(notify.KeyTranscribeFailed, notify.Danger, "Error", "Failed to transcribe audio.")
		return
	}
	if !resp.OK() {
		log.Warnf("session %s: server reported %q: %s", rec.SessionID, resp.Status, resp.Message)
		msg := resp.Message
		if msg == "" {
			msg = "Failed to transcribe audio."
		}
		w.add(notify.KeyTranscribeFailed, notify.Danger, "Error", msg)
		return
	}
	log.Infof("session %s: transcribed %.1fs of audio in %dms", rec.SessionID, rec.Duration.Seconds(), time.Since(start).Milliseconds())

	w.add(notify.KeyTranscribed, notify.Success, "Success", "Transcription completed.")
	w.mu.Lock()
	w.lastText = resp.Text
	w.mu.Unlock()
	if w.opts.OnTranscript != nil {
		w.opts.OnTranscript(resp.Text)
	}

	w.appendText(resp.Text)
	w.refresh()
}

func (w *Widget) appendText(text string) {
	resp, err := w.writer.WriteField(w.ctx, text, w.binding)
	switch {
	case errors.Is(err, ErrEmptyTranscription):
		w.add(notify.KeyEmptyTranscript, notify.Warning, "Error", "No transcription available to save.")
		return
	case rpc.IsSessionExpired(err):
		w.sessionExpired(err)
		return
	case err != nil:
		log.Errorf("%v", err)
		w.add(notify.KeyFieldUpdateFailed, notify.Danger, "Error", "Failed to save text to the field.")
		return
	}

	log.Dictation(w.binding.String(), text)
	w.mu.Lock()
	w.written++
	w.mu.Unlock()

	msg := resp.Message
	if msg == "" {
		msg = "Text added successfully!"
	}
	w.add(notify.KeyFieldUpdated, notify.Success, "Success", msg)
}

// sessionExpired reports a rejected session cookie; the client does not
// re-authenticate by itself.
func (w *Widget) sessionExpired(err error) {
	log.Errorf("session expired: %v", err)
	w.notifier.Add(notify.Notification{
		Key:     notify.KeySessionExpired,
		Message: "Session expired, restart with valid credentials.",
		Title:   "Error",
		Type:    notify.Danger,
		Sticky:  true,
	})
}

func (w *Widget) refresh() {
	if w.opts.Refresher == nil {
		return
	}
	if err := w.opts.Refresher.Refresh(w.ctx, w.binding); err != nil {
		log.Warnf("refresh %s: %v", w.binding, err)
	}
}
