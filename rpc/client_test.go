package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dictafield/internal/fakeodoo"
)

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com", Options{})
	assert.Error(t, err)
	_, err = New("://", Options{})
	assert.Error(t, err)
}

func TestCallEnvelope(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/voice_to_text/recognize", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"status":"success","text":"hello"}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", Options{})
	require.NoError(t, err)

	var res struct{ Status, Text string }
	err = c.Call(context.Background(), "/voice_to_text/recognize", map[string]string{"audio_data": "AAAA"}, &res)
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, "hello", res.Text)

	assert.Equal(t, "2.0", got["jsonrpc"])
	assert.Equal(t, "call", got["method"])
	assert.Equal(t, map[string]any{"audio_data": "AAAA"}, got["params"])
	assert.EqualValues(t, 1, got["id"])
}

func TestCallRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.AccessError","message":"no access"}}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	err = c.Call(context.Background(), "/x", nil, nil)

	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 200, rerr.Code)
	assert.Equal(t, "odoo.exceptions.AccessError", rerr.Data.Name)
	assert.Contains(t, err.Error(), "no access")
	assert.False(t, IsSessionExpired(err))
}

func TestCallHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	err = c.Call(context.Background(), "/x", nil, nil)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadGateway, serr.StatusCode)
}

func TestCallMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	err = c.Call(context.Background(), "/x", nil, nil)
	assert.ErrorContains(t, err, "decoding response")
}

func TestCallTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL, Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Error(t, c.Call(context.Background(), "/x", nil, nil))
}

func TestAuthenticateKeepsSession(t *testing.T) {
	srv := fakeodoo.New()
	defer srv.Close()
	srv.SetRequireSession(true)

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)

	err = c.Call(context.Background(), "/voice_to_text/recognize", map[string]string{"audio_data": ""}, nil)
	assert.True(t, IsSessionExpired(err), "call before auth: %v", err)

	sess, err := c.Authenticate(context.Background(), "odoo", "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, sess.UID)
	assert.Equal(t, fakeodoo.SessionID, c.SessionID())

	err = c.Call(context.Background(), "/voice_to_text/recognize", map[string]string{"audio_data": ""}, nil)
	assert.NoError(t, err)
}

func TestAuthenticateRejected(t *testing.T) {
	srv := fakeodoo.New()
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	_, err = c.Authenticate(context.Background(), "odoo", "admin", "wrong")
	assert.True(t, errors.Is(err, ErrAuthFailed), "got %v", err)
	assert.Empty(t, c.SessionID())
}

func TestPresetSession(t *testing.T) {
	srv := fakeodoo.New()
	defer srv.Close()
	srv.SetRequireSession(true)

	c, err := New(srv.URL, Options{SessionID: fakeodoo.SessionID})
	require.NoError(t, err)
	assert.NoError(t, c.Call(context.Background(), "/voice_to_text/recognize", map[string]string{"audio_data": ""}, nil))
}

func TestVersion(t *testing.T) {
	srv := fakeodoo.New()
	defer srv.Close()

	c, err := New(srv.URL, Options{})
	require.NoError(t, err)
	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "17.0", v)
}

func TestTracedClientBackToBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	tc := NewTracedClient(nil, 5*time.Second)
	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
		require.NoError(t, err)
		resp, err := tc.Do(req)
		require.NoError(t, err)
		assert.Equal(t, "ok", string(resp.Body))
		require.NotNil(t, resp.Metrics)
		assert.Equal(t, i > 0, resp.Metrics.ConnReused, "call %d", i)
		assert.GreaterOrEqual(t, resp.Metrics.Total, resp.Metrics.TTFB)
	}
}
