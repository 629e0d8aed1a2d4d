package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the structured logging backend.
type Options struct {
	// Debug lowers the level to debug. HALOWDIAG_DEBUG has the same effect.
	Debug bool

	// File, when set, sends logs to a rotated file instead of stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Output overrides the destination. Used by tests.
	Output io.Writer
}

// logrLogger adapts a logr.Logger to the printf-style Logger interface.
// Debug maps to V(1), which zerologr renders at debug level.
type logrLogger struct {
	l logr.Logger
}

// NewLogrLogger wraps a logr.Logger.
func NewLogrLogger(l logr.Logger) Logger {
	return &logrLogger{l: l}
}

func (l *logrLogger) Debug(format string, args ...interface{}) {
	l.l.V(1).Info(fmt.Sprintf(format, args...))
}

func (l *logrLogger) Info(format string, args ...interface{}) {
	l.l.Info(fmt.Sprintf(format, args...))
}

func (l *logrLogger) Warn(format string, args ...interface{}) {
	l.l.Info(fmt.Sprintf(format, args...), "severity", "warn")
}

func (l *logrLogger) Error(format string, args ...interface{}) {
	l.l.Error(nil, fmt.Sprintf(format, args...))
}

// Named returns a logger scoped to the given component name when the
// logger is backed by logr. Other loggers are returned unchanged.
func Named(l Logger, name string) Logger {
	if ll, ok := l.(*logrLogger); ok {
		return &logrLogger{l: ll.l.WithName(name)}
	}
	return l
}

// New builds a zerolog-backed Logger from opts without touching the default.
func New(opts Options) (Logger, logr.Logger) {
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"

	w, console := writerFor(opts)

	zl := zerolog.New(w)
	if console {
		zl = zl.Output(zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    os.Getenv("NO_COLOR") != "",
			TimeFormat: time.TimeOnly,
		})
	}

	level := zerolog.InfoLevel
	if opts.Debug || os.Getenv(DebugEnv) != "" {
		level = zerolog.DebugLevel
	}
	zl = zl.Level(level).With().Timestamp().Logger()

	lr := zerologr.New(&zl)
	return NewLogrLogger(lr), lr
}

// Init configures the package default logger.
func Init(opts Options) Logger {
	l, _ := New(opts)
	SetDefault(l)
	return l
}

func writerFor(opts Options) (io.Writer, bool) {
	if opts.Output != nil {
		return opts.Output, false
	}
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		backups := opts.MaxBackups
		if backups <= 0 {
			backups = 3
		}
		return &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: backups,
			MaxAge:     28,
			Compress:   true,
		}, false
	}
	return os.Stderr, term.IsTerminal(int(os.Stderr.Fd()))
}
