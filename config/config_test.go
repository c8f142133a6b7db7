package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dictafield/dictation"
	"dictafield/internal/fakeodoo"
	"dictafield/rpc"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"DICTAFIELD_URL", "DICTAFIELD_DB", "DICTAFIELD_LOGIN", "DICTAFIELD_PASSWORD",
		"DICTAFIELD_SESSION_ID", "DICTAFIELD_MODEL", "DICTAFIELD_FIELD", "DICTAFIELD_RECORD_ID"} {
		t.Setenv(k, "")
	}
}

const sample = `
server:
  url: https://odoo.example.com
  db: prod
  login: jane
  password: secret
  timeout: 45s
target:
  model: crm.lead
  field: voice_to_text
  record_id: 42
audio:
  format: flac
  auto_stop: true
hotkey:
  combo: ctrl+f9
  hold: 0s
notify:
  min_type: danger
`

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := Load(writeFile(t, dir, "config.yaml", sample), "")
	require.NoError(t, err)

	assert.Equal(t, "https://odoo.example.com", cfg.Server.URL)
	assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
	assert.Equal(t, dictation.FieldBinding{Model: "crm.lead", Field: "voice_to_text", RecordID: 42}, cfg.Target)
	assert.Equal(t, "flac", cfg.Audio.Format)
	assert.True(t, cfg.Audio.AutoStop)
	assert.Equal(t, "ctrl+f9", cfg.Hotkey.Combo)
	assert.Zero(t, cfg.Hotkey.Hold)
	assert.Equal(t, "danger", cfg.Notify.MinType)
	// defaults survive partial sections
	assert.True(t, cfg.Notify.Desktop)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissing(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err, "explicit missing file")

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("", "")
	require.NoError(t, err, "missing default file")
	assert.Equal(t, Default(), cfg)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeFile(t, t.TempDir(), "config.yaml", "server: [unclosed"), "")
	assert.ErrorContains(t, err, "parsing")
}

func TestEnvOverridesFileAndDotenv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sample)
	writeFile(t, dir, ".env", "DICTAFIELD_DB=staging\nDICTAFIELD_LOGIN=bot\nDICTAFIELD_RECORD_ID=9\n")
	t.Setenv("DICTAFIELD_LOGIN", "ops")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Server.DB, ".env beats file")
	assert.Equal(t, "ops", cfg.Server.Login, "environment beats .env")
	assert.Equal(t, 9, cfg.Target.RecordID)
	assert.Equal(t, "secret", cfg.Server.Password)
}

func TestExplicitEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := writeFile(t, dir, "custom.env", "DICTAFIELD_SESSION_ID=abc123\n")
	cfg, err := Load(writeFile(t, dir, "config.yaml", sample), envPath)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.Server.SessionID)

	_, err = Load(writeFile(t, dir, "config.yaml", sample), filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestBadRecordID(t *testing.T) {
	clearEnv(t)
	t.Setenv("DICTAFIELD_RECORD_ID", "seven")
	_, err := Load(writeFile(t, t.TempDir(), "config.yaml", sample), "")
	assert.ErrorContains(t, err, "DICTAFIELD_RECORD_ID")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.Server.URL = "http://localhost:8069"
		c.Server.SessionID = "s"
		c.Target = dictation.FieldBinding{Model: "crm.lead", Field: "description", RecordID: 1}
		return c
	}
	require.NoError(t, valid().Validate())

	for name, tc := range map[string]struct {
		mutate func(*Config)
		want   string
	}{
		"no url":         {func(c *Config) { c.Server.URL = "" }, "server.url: is required"},
		"bad url":        {func(c *Config) { c.Server.URL = "odoo" }, "server.url: must be a valid URL"},
		"no target":      {func(c *Config) { c.Target.Model = "" }, "target.model: is required"},
		"bad format":     {func(c *Config) { c.Audio.Format = "mp3" }, "audio.format: must be one of"},
		"bad min type":   {func(c *Config) { c.Notify.MinType = "loud" }, "notify.min_type"},
		"no credentials": {func(c *Config) { c.Server.SessionID = "" }, "session_id or db, login and password"},
	} {
		t.Run(name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSaveRoundsThroughLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	c := Default()
	c.Server.URL = "http://localhost:8069"
	c.Audio.Device = "USB Mic"
	require.NoError(t, c.Save(path))

	got, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "USB Mic", got.Audio.Device)
	assert.Equal(t, c.Server.Timeout, got.Server.Timeout)
}

func TestLoadFileIgnoresEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("DICTAFIELD_PASSWORD", "from-env")
	cfg, err := LoadFile(writeFile(t, t.TempDir(), "config.yaml", sample))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Server.Password)

	cfg, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestConnect(t *testing.T) {
	srv := fakeodoo.New()
	defer srv.Close()
	srv.SetRequireSession(true)

	s := ServerConfig{URL: srv.URL, DB: srv.DB, Login: srv.Login, Password: srv.Password, Timeout: 5 * time.Second}
	client, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakeodoo.SessionID, client.SessionID())

	s.Password = "wrong"
	_, err = s.Connect(context.Background())
	assert.ErrorIs(t, err, rpc.ErrAuthFailed)
}

func TestConnectWithSessionSkipsLogin(t *testing.T) {
	s := ServerConfig{URL: "http://127.0.0.1:1", SessionID: "abc"}
	client, err := s.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", client.SessionID())
}
