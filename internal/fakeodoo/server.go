// Package fakeodoo serves the backend routes dictafield talks to, for tests.
package fakeodoo

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const SessionID = "fake-session"

type UpdateCall struct {
	Model    string `json:"model"`
	Field    string `json:"field"`
	RecordID int    `json:"record_id"`
	Script   string `json:"script"`
}

// Server is an httptest server speaking the JSON-RPC envelope. Recognize
// answers with Transcript, or with a status "error" response when
// RecognizeError is set. Update appends to Records the way the server module
// does: existing + "\n" + script, stripped.
type Server struct {
	*httptest.Server

	DB, Login, Password string

	mu             sync.Mutex
	Transcript     string
	RecognizeError string
	FailUpdate     bool
	RequireSession bool
	Records        map[string]string
	audio          [][]byte
	updates        []UpdateCall
}

func New() *Server {
	s := &Server{
		DB:       "odoo",
		Login:    "admin",
		Password: "admin",
		Records:  map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /web/session/authenticate", s.handle(s.authenticate))
	mux.HandleFunc("POST /web/webclient/version_info", s.handle(s.version))
	mux.HandleFunc("POST /voice_to_text/recognize", s.handle(s.authed(s.recognize)))
	mux.HandleFunc("POST /voice_to_text/update_field", s.handle(s.authed(s.update)))
	mux.HandleFunc("POST /web/dataset/call_kw/{model}/read", s.handle(s.authed(s.read)))
	mux.HandleFunc("HEAD /", func(w http.ResponseWriter, _ *http.Request) {})
	s.Server = httptest.NewServer(mux)
	return s
}

func Key(model string, id int, field string) string {
	return fmt.Sprintf("%s,%d,%s", model, id, field)
}

func (s *Server) SetTranscript(text string) {
	s.mu.Lock()
	s.Transcript, s.RecognizeError = text, ""
	s.mu.Unlock()
}

func (s *Server) SetRecognizeError(msg string) {
	s.mu.Lock()
	s.RecognizeError = msg
	s.mu.Unlock()
}

func (s *Server) SetFailUpdate(fail bool) {
	s.mu.Lock()
	s.FailUpdate = fail
	s.mu.Unlock()
}

func (s *Server) SetRequireSession(require bool) {
	s.mu.Lock()
	s.RequireSession = require
	s.mu.Unlock()
}

func (s *Server) SetRecord(model string, id int, field, value string) {
	s.mu.Lock()
	s.Records[Key(model, id, field)] = value
	s.mu.Unlock()
}

func (s *Server) Record(model string, id int, field string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Records[Key(model, id, field)]
}

// Audio returns the decoded audio of every recognize call.
func (s *Server) Audio() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.audio...)
}

func (s *Server) Updates() []UpdateCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]UpdateCall(nil), s.updates...)
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, params json.RawMessage) (any, *rpcError)

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int64           `json:"id"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result, rerr := h(w, r, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rerr != nil {
			resp["error"] = rerr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func (s *Server) authed(h handlerFunc) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params json.RawMessage) (any, *rpcError) {
		s.mu.Lock()
		require := s.RequireSession
		s.mu.Unlock()
		if require {
			c, err := r.Cookie("session_id")
			if err != nil || c.Value != SessionID {
				return nil, &rpcError{Code: 100, Message: "Odoo Session Expired", Data: map[string]any{
					"name":    "odoo.http.SessionExpiredException",
					"message": "Session expired",
				}}
			}
		}
		return h(w, r, params)
	}
}

func (s *Server) authenticate(w http.ResponseWriter, _ *http.Request, params json.RawMessage) (any, *rpcError) {
	var p struct{ DB, Login, Password string }
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, badParams(err)
	}
	if p.DB != s.DB || p.Login != s.Login || p.Password != s.Password {
		return map[string]any{"uid": false}, nil
	}
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: SessionID, Path: "/"})
	return map[string]any{"uid": 2, "db": p.DB, "username": p.Login, "server_version": "17.0"}, nil
}

func (s *Server) version(http.ResponseWriter, *http.Request, json.RawMessage) (any, *rpcError) {
	return map[string]any{"server_version": "17.0"}, nil
}

func (s *Server) recognize(_ http.ResponseWriter, _ *http.Request, params json.RawMessage) (any, *rpcError) {
	var p struct {
		AudioData string `json:"audio_data"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, badParams(err)
	}
	audio, err := base64.StdEncoding.DecodeString(p.AudioData)
	if err != nil {
		return map[string]any{"status": "error", "message": "Incorrect padding"}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.audio = append(s.audio, audio)
	if s.RecognizeError != "" {
		return map[string]any{"status": "error", "message": s.RecognizeError}, nil
	}
	return map[string]any{"status": "success", "text": s.Transcript}, nil
}

func (s *Server) update(_ http.ResponseWriter, _ *http.Request, params json.RawMessage) (any, *rpcError) {
	var p UpdateCall
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, badParams(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, p)
	if s.FailUpdate {
		return nil, &rpcError{Code: 200, Message: "Odoo Server Error", Data: map[string]any{
			"name":    "odoo.exceptions.MissingError",
			"message": "Record does not exist or has been deleted.",
		}}
	}
	k := Key(p.Model, p.RecordID, p.Field)
	s.Records[k] = strings.TrimSpace(s.Records[k] + "\n" + p.Script)
	return map[string]any{"status": "success", "message": "Field updated successfully."}, nil
}

func (s *Server) read(_ http.ResponseWriter, r *http.Request, params json.RawMessage) (any, *rpcError) {
	var p struct {
		Args []json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal(params, &p); err != nil || len(p.Args) != 2 {
		return nil, badParams(err)
	}
	var ids []int
	var fields []string
	if err := json.Unmarshal(p.Args[0], &ids); err != nil {
		return nil, badParams(err)
	}
	if err := json.Unmarshal(p.Args[1], &fields); err != nil {
		return nil, badParams(err)
	}

	model := r.PathValue("model")
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		row := map[string]any{"id": id}
		for _, f := range fields {
			row[f] = s.Records[Key(model, id, f)]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func badParams(err error) *rpcError {
	msg := "invalid params"
	if err != nil {
		msg = err.Error()
	}
	return &rpcError{Code: 200, Message: "Odoo Server Error", Data: map[string]any{"name": "builtins.TypeError", "message": msg}}
}
