// Package rpc talks to the backend's JSON-RPC routes over HTTP.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"dictafield/log"
)

const (
	DefaultTimeout = 120 * time.Second

	sessionCookie = "session_id"
	authRoute     = "/web/session/authenticate"
	versionRoute  = "/web/webclient/version_info"
)

type Options struct {
	// Timeout bounds a whole call including reading the response.
	Timeout time.Duration
	// SessionID presets the session cookie instead of authenticating.
	SessionID string
}

type Client struct {
	base   *url.URL
	jar    http.CookieJar
	http   *TracedClient
	nextID atomic.Int64
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int64  `json:"id"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error"`
}

func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if opts.SessionID != "" {
		jar.SetCookies(u, []*http.Cookie{{Name: sessionCookie, Value: opts.SessionID, Path: "/"}})
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{base: u, jar: jar, http: NewTracedClient(jar, timeout)}, nil
}

// SessionID returns the current session cookie value, if any.
func (c *Client) SessionID() string {
	for _, ck := range c.jar.Cookies(c.base) {
		if ck.Name == sessionCookie {
			return ck.Value
		}
	}
	return ""
}

// Warm pre-opens a connection so the first dictation does not pay for TLS.
func (c *Client) Warm() {
	c.http.Warm(c.base.String() + versionRoute)
}

// Call posts params to route as a JSON-RPC "call" and decodes the result
// into result, which may be nil.
func (c *Client) Call(ctx context.Context, route string, params, result any) error {
	id := c.nextID.Add(1)
	body, err := json.Marshal(request{JSONRPC: "2.0", Method: "call", Params: params, ID: id})
	if err != nil {
		return fmt.Errorf("encoding %s params: %w", route, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+route, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", route, err)
	}
	logCall(route, len(body), resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %w", route, &StatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)})
	}

	var rr response
	if err := json.Unmarshal(resp.Body, &rr); err != nil {
		return fmt.Errorf("%s: decoding response: %w", route, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%s: %w", route, rr.Error)
	}
	if result == nil || len(rr.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rr.Result, result); err != nil {
		return fmt.Errorf("%s: decoding result: %w", route, err)
	}
	return nil
}

func logCall(route string, reqBytes int, resp *TracedResponse) {
	m := resp.Metrics
	log.Call(log.CallMetrics{
		Route:      route,
		StatusCode: resp.StatusCode,
		ConnReused: m.ConnReused,
		DNSMs:      ms(m.DNS),
		TLSMs:      ms(m.TLS),
		TTFBMs:     ms(m.TTFB),
		TotalMs:    ms(m.Total),
		ReqKB:      float64(reqBytes) / 1024,
	})
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

type Session struct {
	UID           int
	DB            string
	Username      string
	ServerVersion string
}

type sessionInfo struct {
	UID           json.RawMessage `json:"uid"`
	DB            string          `json:"db"`
	Username      string          `json:"username"`
	ServerVersion string          `json:"server_version"`
}

// Authenticate opens a session with login and password; the session cookie
// is kept for subsequent calls.
func (c *Client) Authenticate(ctx context.Context, db, login, password string) (*Session, error) {
	var info sessionInfo
	params := map[string]string{"db": db, "login": login, "password": password}
	if err := c.Call(ctx, authRoute, params, &info); err != nil {
		return nil, err
	}
	// uid is false on rejected credentials for older servers
	var uid int
	if err := json.Unmarshal(info.UID, &uid); err != nil || uid == 0 {
		return nil, fmt.Errorf("%w for %s on %s", ErrAuthFailed, login, db)
	}
	return &Session{UID: uid, DB: info.DB, Username: info.Username, ServerVersion: info.ServerVersion}, nil
}

// Version asks the server for its version string; it needs no session.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v struct {
		ServerVersion string `json:"server_version"`
	}
	if err := c.Call(ctx, versionRoute, map[string]any{}, &v); err != nil {
		return "", err
	}
	return v.ServerVersion, nil
}
