// Package logger holds the process-wide structured logger used outside the
// allocator core. Output is discarded until Init enables it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger. It discards everything until Init is called.
var L = discard()

const (
	logPrefix     = "heapctl-"
	logSuffix     = ".log"
	retentionDays = 14
)

// Options configures the logger.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Level   slog.Level // Minimum level; zero means Info
	Writer  io.Writer  // Destination; when nil, a dated file under LogDir
	LogDir  string     // Directory for log files when Writer is nil
	JSON    bool       // JSON records instead of key=value text
}

// Init configures L. With Writer and LogDir both unset, records go to stderr.
func Init(opts Options) error {
	if !opts.Enabled {
		L = discard()
		return nil
	}

	w := opts.Writer
	if w == nil && opts.LogDir != "" {
		f, err := openLogFile(opts.LogDir)
		if err != nil {
			return err
		}
		w = f
	}
	if w == nil {
		w = os.Stderr
	}

	ho := &slog.HandlerOptions{Level: opts.Level}
	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, ho))
	} else {
		L = slog.New(slog.NewTextHandler(w, ho))
	}
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	cleanOldLogs(dir, time.Now())
	name := filepath.Join(dir, logPrefix+time.Now().Format(time.DateOnly)+logSuffix)
	return os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// cleanOldLogs removes dated log files older than retentionDays. Best effort.
func cleanOldLogs(dir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}
		day, err := time.Parse(time.DateOnly, strings.TrimSuffix(strings.TrimPrefix(name, logPrefix), logSuffix))
		if err != nil {
			continue
		}
		if day.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { L.Error(msg, args...) }
