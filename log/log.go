package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	dictateFile *os.File
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

const (
	diagFileName    = "diagnostics_log.txt"
	dictateFileName = "dictation_log.txt"
)

// CallMetrics describes one remote call as seen by the traced transport.
type CallMetrics struct {
	Route      string
	StatusCode int
	ConnReused bool
	DNSMs      float64
	TLSMs      float64
	TTFBMs     float64
	TotalMs    float64
	ReqKB      float64
}

// RecordingStats describes one assembled recording.
type RecordingStats struct {
	SessionID string
	Chunks    int
	AudioS    float64
	RawKB     float64
	EncodedKB float64
	Format    string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absFromWd(flagPath)
	}

	// Priority 2: DICTAFIELD_LOG_PATH environment variable
	if envPath := os.Getenv("DICTAFIELD_LOG_PATH"); envPath != "" {
		return absFromWd(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absFromWd(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagFile, err = os.OpenFile(filepath.Join(dir, diagFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	dictateFile, err = os.OpenFile(filepath.Join(dir, dictateFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if dictateFile != nil {
		dictateFile.Close()
		dictateFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Call(m CallMetrics) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	diagLog.Info().
		Str("route", m.Route).
		Int("status", m.StatusCode).
		Str("conn", connStatus).
		Float64("req_kb", m.ReqKB).
		Float64("dns_ms", m.DNSMs).
		Float64("tls_ms", m.TLSMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalMs).
		Msg("rpc_call")
}

func Recording(s RecordingStats) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", s.SessionID).
		Str("format", s.Format).
		Int("chunks", s.Chunks).
		Float64("audio_s", s.AudioS).
		Float64("raw_kb", s.RawKB).
		Float64("encoded_kb", s.EncodedKB).
		Msg("recording")
}

func Notification(kind, title, message string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("type", kind).
		Str("title", title).
		Msg("notify: " + message)
}

// Dictation appends one written transcription to the dictation log.
func Dictation(target, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if dictateFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, target, text)
	dictateFile.WriteString(line)
}

func SessionStart(server, target, format string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("server", server).
		Str("target", target).
		Str("format", format).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
