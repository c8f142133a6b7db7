package rpc

import (
	"errors"
	"fmt"
	"strings"
)

var ErrAuthFailed = errors.New("authentication failed")

// Error is the error object of a JSON-RPC response.
type Error struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    ErrorData `json:"data"`
}

type ErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Debug   string `json:"debug"`
}

func (e *Error) Error() string {
	if e.Data.Message != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data.Message)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// SessionExpired reports whether the server rejected the call for lack of a
// valid session.
func (e *Error) SessionExpired() bool {
	return strings.HasSuffix(e.Data.Name, "SessionExpiredException")
}

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

// IsSessionExpired reports whether err carries an expired-session rpc error.
func IsSessionExpired(err error) bool {
	var rerr *Error
	return errors.As(err, &rerr) && rerr.SessionExpired()
}
