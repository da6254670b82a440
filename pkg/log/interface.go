package log

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Logger is the structured logger every console component receives.
//
//	logger := logger.With(Component("gateway"))
//	logger.Warn("request failed", String(FieldPath, "/users"), Error(err))
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs and terminates the process. Only binaries call it.
	Fatal(msg string, fields ...Field)

	// With returns a child logger that adds fields to every entry.
	With(fields ...Field) Logger
	// WithContext returns a child logger carrying the active trace of ctx.
	WithContext(ctx context.Context) Logger
}

// Level is a logging severity. Higher is more severe.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
	FatalLevel: "fatal",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel reads a level name as written in the config file. Unknown
// names fall back to InfoLevel.
func ParseLevel(s string) Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return WarnLevel
	}
	for level, name := range levelNames {
		if name == s {
			return level
		}
	}
	return InfoLevel
}

// Field is one key/value pair of a log entry.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Time(key string, value time.Time) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Stringer defers formatting of value until the entry is written.
func Stringer(key string, value fmt.Stringer) Field { return Field{Key: key, Value: value} }

// Error records err under FieldError.
func Error(err error) Field { return Field{Key: FieldError, Value: err} }

func Any(key string, value interface{}) Field { return Field{Key: key, Value: value} }
