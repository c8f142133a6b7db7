// Package config loads dictafield settings from a YAML file, a .env file and
// DICTAFIELD_* environment variables, in increasing precedence. Command-line
// flags are applied on top by main.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"dictafield/dictation"
	"dictafield/internal/validate"
	"dictafield/log"
	"dictafield/rpc"
)

const (
	appName     = "dictafield"
	fileName    = "config.yaml"
	envFileName = ".env"
)

type Config struct {
	Server ServerConfig           `yaml:"server"`
	Target dictation.FieldBinding `yaml:"target"`
	Audio  AudioConfig            `yaml:"audio"`
	Hotkey HotkeyConfig           `yaml:"hotkey"`
	Notify NotifyConfig           `yaml:"notify"`
}

type ServerConfig struct {
	URL       string        `yaml:"url" validate:"required,http_url"`
	DB        string        `yaml:"db"`
	Login     string        `yaml:"login"`
	Password  string        `yaml:"password"`
	SessionID string        `yaml:"session_id"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
}

type AudioConfig struct {
	Format   string `yaml:"format" validate:"oneof=wav flac"`
	Device   string `yaml:"device"`
	AutoStop bool   `yaml:"auto_stop"`
}

type HotkeyConfig struct {
	Combo string `yaml:"combo"`
	// Hold turns a press held this long into push-to-talk; zero disables it.
	Hold time.Duration `yaml:"hold" validate:"gte=0"`
}

type NotifyConfig struct {
	Desktop bool   `yaml:"desktop"`
	MinType string `yaml:"min_type" validate:"oneof=info success warning danger"`
	Sounds  bool   `yaml:"sounds"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Timeout: 120 * time.Second},
		Audio:  AudioConfig{Format: "wav"},
		Hotkey: HotkeyConfig{Combo: "ctrl+shift+space", Hold: 400 * time.Millisecond},
		Notify: NotifyConfig{Desktop: true, MinType: "warning", Sounds: true},
	}
}

// DefaultPath is config.yaml in the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return fileName
	}
	return filepath.Join(dir, appName, fileName)
}

// Load reads path (DefaultPath when empty) and then applies envFile and the
// environment. A missing default file is not an error; a missing explicit
// one is. envFile may be empty, in which case .env in the config directory
// and in the working directory are tried.
func Load(path, envFile string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	cfg, err := readFile(path, explicit)
	if err != nil {
		return nil, err
	}

	dotenv, err := readEnvFiles(envFile, filepath.Join(filepath.Dir(path), envFileName), envFileName)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(cfg, func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads only the YAML file at path, without environment
// overrides. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	return readFile(path, false)
}

func readFile(path string, mustExist bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !mustExist:
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// readEnvFiles reads explicit if set, otherwise the first existing fallback.
func readEnvFiles(explicit string, fallbacks ...string) (map[string]string, error) {
	if explicit != "" {
		env, err := godotenv.Read(explicit)
		if err != nil {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
		return env, nil
	}
	for _, p := range fallbacks {
		env, err := godotenv.Read(p)
		if err == nil {
			return env, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
	}
	return map[string]string{}, nil
}

func applyEnv(cfg *Config, get func(string) string) error {
	strs := map[string]*string{
		"DICTAFIELD_URL":        &cfg.Server.URL,
		"DICTAFIELD_DB":         &cfg.Server.DB,
		"DICTAFIELD_LOGIN":      &cfg.Server.Login,
		"DICTAFIELD_PASSWORD":   &cfg.Server.Password,
		"DICTAFIELD_SESSION_ID": &cfg.Server.SessionID,
		"DICTAFIELD_MODEL":      &cfg.Target.Model,
		"DICTAFIELD_FIELD":      &cfg.Target.Field,
	}
	for key, dst := range strs {
		if v := get(key); v != "" {
			*dst = v
		}
	}
	if v := get("DICTAFIELD_RECORD_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DICTAFIELD_RECORD_ID: %w", err)
		}
		cfg.Target.RecordID = id
	}
	return nil
}

// Validate checks field constraints and that either a session id or full
// credentials are present.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s := c.Server
	if s.SessionID == "" && (s.DB == "" || s.Login == "" || s.Password == "") {
		return errors.New("invalid config: server needs session_id or db, login and password")
	}
	return nil
}

// Save writes c to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Connect opens a client for the server and authenticates it unless a
// session id is configured.
func (s ServerConfig) Connect(ctx context.Context) (*rpc.Client, error) {
	client, err := rpc.New(s.URL, rpc.Options{Timeout: s.Timeout, SessionID: s.SessionID})
	if err != nil {
		return nil, err
	}
	if s.SessionID != "" {
		return client, nil
	}
	sess, err := client.Authenticate(ctx, s.DB, s.Login, s.Password)
	if err != nil {
		return nil, err
	}
	log.Infof("authenticated: uid=%d db=%s version=%s", sess.UID, sess.DB, sess.ServerVersion)
	return client, nil
}
