package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	charmlog "github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Options configures the global logger.
type Options struct {
	// Level is the minimum level written. Defaults to INFO.
	Level Level
	// File, if set, receives a rotated copy of every log line in addition
	// to stderr.
	File string
	// Caller adds file:line to each line; useful with --debug.
	Caller bool
}

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stderr, LevelInfo, false)
)

func newLogger(w io.Writer, level Level, caller bool) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		ReportCaller:    caller,
		CallerOffset:    1,
		Level:           toCharm(level),
		Prefix:          "intentcal",
	})
}

// Init replaces the global logger. It is safe to call more than once; the
// last call wins.
func Init(opts Options) error {
	var w io.Writer = os.Stderr
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return err
		}
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	level := opts.Level
	if level == "" {
		level = LevelInfo
	}

	mu.Lock()
	logger = newLogger(w, level, opts.Caller)
	mu.Unlock()
	return nil
}

// ParseLevel maps "debug", "info", "warn" and "error" (any case) to a
// Level. Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch Level(strings.ToUpper(strings.TrimSpace(s))) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn, "WARNING":
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	current().SetLevel(toCharm(l))
}

func Debug(msg string, kv ...any) {
	current().Debug(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Info(msg, kv...)
}

func Warn(msg string, kv ...any) {
	current().Warn(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Error(msg, extended...)
}

func current() *charmlog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func toCharm(l Level) charmlog.Level {
	switch l {
	case LevelDebug:
		return charmlog.DebugLevel
	case LevelWarn:
		return charmlog.WarnLevel
	case LevelError:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
