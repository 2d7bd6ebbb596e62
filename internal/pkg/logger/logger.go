package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level represents the severity of a log entry.
type Level = logrus.Level

const (
	DEBUG = logrus.DebugLevel
	INFO  = logrus.InfoLevel
	WARN  = logrus.WarnLevel
	ERROR = logrus.ErrorLevel
)

// Logger provides structured JSON logging with optional secret redaction.
type Logger struct {
	base   *logrus.Logger
	fields logrus.Fields
	redact bool
}

var defaultLogger = New(os.Stderr)

// New creates a logger writing JSON lines to w.
func New(w io.Writer) *Logger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "msg"},
	})
	base.SetLevel(INFO)
	return &Logger{base: base, fields: logrus.Fields{}, redact: true}
}

// Default returns the process-wide logger.
func Default() *Logger { return defaultLogger }

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.base.SetLevel(l) }

// SetOutput redirects the default logger.
func SetOutput(w io.Writer) { defaultLogger.base.SetOutput(w) }

// SetRedact enables or disables secret redaction for the default logger.
func SetRedact(r bool) { defaultLogger.redact = r }

// ParseLevel maps "debug", "info", "warn", "error" to a Level. Unknown names
// fall back to INFO.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.Debug(msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.Info(msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.Warn(msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.Error(msg, fields...) }

// With returns a child of the default logger carrying the given key/value pairs.
func With(fields ...interface{}) *Logger { return defaultLogger.With(fields...) }

// With returns a child logger carrying the given key/value pairs on every entry.
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make(logrus.Fields, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		merged[k] = v
	}
	l.appendPairs(merged, fields)
	return &Logger{base: l.base, fields: merged, redact: l.redact}
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(INFO, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(WARN, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if !l.base.IsLevelEnabled(level) {
		return
	}
	entry := make(logrus.Fields, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		entry[k] = v
	}
	l.appendPairs(entry, fields)
	l.base.WithFields(entry).Log(level, msg)
}

// appendPairs parses alternating key/value arguments. A trailing key without
// a value is dropped.
func (l *Logger) appendPairs(dst logrus.Fields, fields []interface{}) {
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		var val interface{} = fields[i+1]
		if err, ok := val.(error); ok {
			val = err.Error()
		}
		if l.redact {
			if s, ok := val.(string); ok {
				val = redactValue(key, s)
			}
		}
		dst[key] = val
	}
}
