// Package logger is a small leveled logger. Lines look like
//
//	2024/01/02 15:04:05 [INFO] [member-chat] [action=login trace_id=...] file.go:42 message
//
// and go to stdout plus, optionally, a size-rotated file.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/AlibekovAA/member-chat/internal/common/constants"
)

type Fields map[string]interface{}

type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	CRITICAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

// ParseLevel accepts level names case-insensitively and falls back to INFO.
func ParseLevel(value string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return DEBUG
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	case "CRITICAL":
		return CRITICAL
	default:
		return INFO
	}
}

type Logger struct {
	level       atomic.Int32
	out         *log.Logger
	serviceName string
}

// New builds a logger writing to stdout and, when logDir is set, to a rotated
// app.log inside it.
func New(logDir, serviceName, level string) (*Logger, error) {
	var w io.Writer = os.Stdout

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		w = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "app.log"),
			MaxSize:    constants.LoggerMaxSize,
			MaxBackups: constants.LoggerMaxBackups,
			MaxAge:     constants.LoggerMaxAge,
			Compress:   true,
		})
	}

	return NewWithWriter(w, serviceName, level), nil
}

func NewWithWriter(w io.Writer, serviceName, level string) *Logger {
	l := &Logger{
		out:         log.New(w, "", log.LstdFlags),
		serviceName: serviceName,
	}
	l.SetLevel(level)
	return l
}

func (l *Logger) SetLevel(level string) {
	l.level.Store(int32(ParseLevel(level)))
}

func (l *Logger) ShouldLog(level LogLevel) bool {
	return level >= LogLevel(l.level.Load())
}

// Frames between write and the caller of a public logging method.
const (
	skipDirect    = 2
	skipFormatted = 3
)

func (l *Logger) write(skip int, level LogLevel, ctx context.Context, fields Fields, msg string) {
	if !l.ShouldLog(level) {
		return
	}

	var b strings.Builder
	b.WriteString("[" + level.String() + "]")
	if l.serviceName != "" {
		b.WriteString(" [" + l.serviceName + "]")
	}

	if parts := formatFields(ctx, fields); len(parts) > 0 {
		b.WriteString(" [" + strings.Join(parts, " ") + "]")
	}

	file, line := "unknown", 0
	if _, f, ln, ok := runtime.Caller(skip); ok {
		file, line = filepath.Base(f), ln
	}
	fmt.Fprintf(&b, " %s:%d %s", file, line, msg)

	_ = l.out.Output(0, b.String())
}

func formatFields(ctx context.Context, fields Fields) []string {
	parts := make([]string, 0, len(fields)+1)

	if ctx != nil {
		if traceID, ok := ctx.Value(constants.TraceIDKey).(string); ok && traceID != "" {
			if _, dup := fields["trace_id"]; !dup {
				parts = append(parts, "trace_id="+traceID)
			}
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return parts
}

func (l *Logger) logf(level LogLevel, format string, args ...any) {
	l.write(skipFormatted, level, nil, nil, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(msg string)    { l.write(skipDirect, DEBUG, nil, nil, msg) }
func (l *Logger) Info(msg string)     { l.write(skipDirect, INFO, nil, nil, msg) }
func (l *Logger) Warn(msg string)     { l.write(skipDirect, WARNING, nil, nil, msg) }
func (l *Logger) Error(msg string)    { l.write(skipDirect, ERROR, nil, nil, msg) }
func (l *Logger) Critical(msg string) { l.write(skipDirect, CRITICAL, nil, nil, msg) }

func (l *Logger) Debugf(format string, args ...any)    { l.logf(DEBUG, format, args...) }
func (l *Logger) Infof(format string, args ...any)     { l.logf(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)     { l.logf(WARNING, format, args...) }
func (l *Logger) Errorf(format string, args ...any)    { l.logf(ERROR, format, args...) }
func (l *Logger) Criticalf(format string, args ...any) { l.logf(CRITICAL, format, args...) }

func (l *Logger) Fatalf(format string, args ...any) {
	l.logf(CRITICAL, format, args...)
	os.Exit(1)
}

// WithFields returns an entry that prefixes every line with fields and the
// trace id carried by ctx.
func (l *Logger) WithFields(ctx context.Context, fields Fields) *Entry {
	return &Entry{logger: l, ctx: ctx, fields: fields}
}

type Entry struct {
	logger *Logger
	ctx    context.Context
	fields Fields
}

// WithField returns a copy of the entry with one more field.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	fields := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		fields[k] = v
	}
	fields[key] = value
	return &Entry{logger: e.logger, ctx: e.ctx, fields: fields}
}

func (e *Entry) logf(level LogLevel, format string, args ...any) {
	e.logger.write(skipFormatted, level, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func (e *Entry) Debug(msg string) { e.logger.write(skipDirect, DEBUG, e.ctx, e.fields, msg) }
func (e *Entry) Info(msg string)  { e.logger.write(skipDirect, INFO, e.ctx, e.fields, msg) }
func (e *Entry) Warn(msg string)  { e.logger.write(skipDirect, WARNING, e.ctx, e.fields, msg) }
func (e *Entry) Error(msg string) { e.logger.write(skipDirect, ERROR, e.ctx, e.fields, msg) }

func (e *Entry) Debugf(format string, args ...any) { e.logf(DEBUG, format, args...) }
func (e *Entry) Infof(format string, args ...any)  { e.logf(INFO, format, args...) }
func (e *Entry) Warnf(format string, args ...any)  { e.logf(WARNING, format, args...) }
func (e *Entry) Errorf(format string, args ...any) { e.logf(ERROR, format, args...) }
