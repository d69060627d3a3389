package logging

import "time"

// Level is the minimum severity a logger emits.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns the upper-case level name.
func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps the level names accepted in pipeline configs (any case)
// to a Level. Unknown names fall back to InfoLevel.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return DebugLevel
	case "warn", "WARN", "warning", "WARNING":
		return WarnLevel
	case "error", "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one key-value pair attached to a log line. Values are built with
// the typed constructors in logger_fields.go.
type Field struct {
	Key   string
	Value any
}

// Logger is what the parser, generator and navigation code log through.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger with the given fields pre-set on every line.
	With(fields ...Field) Logger
	SetLevel(level Level)
}

// NopLogger discards everything. Components accept a nil logger and
// substitute it so library callers are not forced to configure logging.
type NopLogger struct{}

func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (n NopLogger) With(fields ...Field) Logger     { return n }
func (NopLogger) SetLevel(level Level)              {}

// TimedOperation carries the start time and base fields of one in-flight
// operation between StartTimer and End/EndError.
type TimedOperation struct {
	logger Logger
	msg    string
	start  time.Time
	fields []Field
}
