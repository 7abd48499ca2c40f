// Package telemetry is the engine's structured logging surface. It
// keeps the teacher's logging.Logger ergonomics (component tagging,
// trace-id propagation, With* chaining) but backs the actual
// encode/write path with zerolog instead of a hand-rolled JSON
// encoder.
package telemetry

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level mirrors zerolog.Level with the names the engine's config uses.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARN:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ParseLevel converts a string to a Level, defaulting to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Config configures a Logger.
type Config struct {
	Level      string // DEBUG, INFO, WARN, ERROR
	Output     string // "stdout", "stderr", or a file path
	Component  string
	JSONFormat bool // false uses zerolog's ConsoleWriter
}

// Logger is a component-scoped structured logger.
type Logger struct {
	base      zerolog.Logger
	component string
	traceID   string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New builds a Logger from Config.
func New(cfg Config) *Logger {
	var w io.Writer = os.Stdout
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			w = f
		}
	}
	if !cfg.JSONFormat {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	base := zerolog.New(w).Level(ParseLevel(cfg.Level).zerolog()).With().Timestamp().Logger()
	if cfg.Component != "" {
		base = base.With().Str("component", cfg.Component).Logger()
	}
	return &Logger{base: base, component: cfg.Component}
}

// Default returns the process-wide default logger, INFO/JSON/stdout.
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(Config{Level: "INFO", Output: "stdout", Component: "engine", JSONFormat: true})
	})
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l *Logger) {
	once.Do(func() {})
	defaultLogger = l
}

// GenerateTraceID returns a random 16-byte hex trace id, one per tick.
func GenerateTraceID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type ctxKey string

const loggerKey ctxKey = "telemetry.logger"

// WithTraceContext stamps a fresh trace id onto ctx and returns a
// logger carrying it, for use as the single logger threaded through
// one tick.
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	l := Default().WithTraceID(GenerateTraceID())
	return context.WithValue(ctx, loggerKey, l), l
}

// FromContext retrieves the tick-scoped logger, or Default() if none was stamped.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

func (l *Logger) WithComponent(component string) *Logger {
	n := *l
	n.component = component
	n.base = l.base.With().Str("component", component).Logger()
	return &n
}

func (l *Logger) WithTraceID(traceID string) *Logger {
	n := *l
	n.traceID = traceID
	n.base = l.base.With().Str("trace_id", traceID).Logger()
	return &n
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	n := *l
	n.base = l.base.With().Interface(key, value).Logger()
	return &n
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.event(l.base.Debug(), msg, kv) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.event(l.base.Info(), msg, kv) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.event(l.base.Warn(), msg, kv) }
func (l *Logger) Error(msg string, err error, kv ...interface{}) {
	e := l.base.Error()
	if err != nil {
		e = e.Err(err)
	}
	l.event(e, msg, kv)
}

// event appends alternating key/value pairs (teacher's "log.Info("msg", "key", val)"
// ergonomics) onto a zerolog event and fires it.
func (l *Logger) event(e *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if key == "" {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
