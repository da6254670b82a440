package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/songzhibin97/adminconsole/pkg/log"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StdoutLogger implements log.Logger on top of zap.
type StdoutLogger struct {
	zapLogger *zap.Logger
}

// Config represents the configuration options for StdoutLogger.
type Config struct {
	// Level sets the minimum logging level
	Level log.Level `json:"level"`

	// TimeFormat specifies the time format for timestamps
	// Default: RFC3339
	TimeFormat string `json:"time_format,omitempty"`

	// EnableCaller adds caller information to log entries
	EnableCaller bool `json:"enable_caller"`

	// EnableStacktrace adds stack trace for error and fatal levels
	EnableStacktrace bool `json:"enable_stacktrace"`

	// Development switches to the human readable console encoder.
	Development bool `json:"development"`

	// Output receives the encoded entries. Defaults to os.Stderr so that
	// command output on stdout stays machine readable.
	Output io.Writer `json:"-"`
}

// DefaultConfig returns a default configuration for StdoutLogger.
func DefaultConfig() *Config {
	return &Config{
		Level:            log.InfoLevel,
		TimeFormat:       time.RFC3339,
		EnableStacktrace: true,
	}
}

// New creates a new StdoutLogger with the given configuration.
func New(config *Config) (*StdoutLogger, error) {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(
		newEncoder(config),
		zapcore.Lock(zapcore.AddSync(out)),
		zapLevel(config.Level),
	)

	var options []zap.Option
	if config.EnableCaller {
		options = append(options, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	if config.Development {
		options = append(options, zap.Development())
	}

	return &StdoutLogger{zapLogger: zap.New(core, options...)}, nil
}

func newEncoder(config *Config) zapcore.Encoder {
	ec := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder(config.TimeFormat),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if config.Development {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func (l *StdoutLogger) Debug(msg string, fields ...log.Field) {
	l.zapLogger.Debug(msg, zapFields(fields)...)
}

func (l *StdoutLogger) Info(msg string, fields ...log.Field) {
	l.zapLogger.Info(msg, zapFields(fields)...)
}

func (l *StdoutLogger) Warn(msg string, fields ...log.Field) {
	l.zapLogger.Warn(msg, zapFields(fields)...)
}

func (l *StdoutLogger) Error(msg string, fields ...log.Field) {
	l.zapLogger.Error(msg, zapFields(fields)...)
}

// Fatal logs and exits the process.
func (l *StdoutLogger) Fatal(msg string, fields ...log.Field) {
	l.zapLogger.Fatal(msg, zapFields(fields)...)
}

// With returns a child logger carrying fields. The parent is unchanged.
func (l *StdoutLogger) With(fields ...log.Field) log.Logger {
	if len(fields) == 0 {
		return l
	}
	return &StdoutLogger{zapLogger: l.zapLogger.With(zapFields(fields)...)}
}

// WithContext attaches the trace and span IDs of the active span, if any.
func (l *StdoutLogger) WithContext(ctx context.Context) log.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		log.String(log.FieldTraceID, sc.TraceID().String()),
		log.String(log.FieldSpanID, sc.SpanID().String()),
	)
}

// Sync flushes buffered entries.
func (l *StdoutLogger) Sync() error {
	return l.zapLogger.Sync()
}

func zapLevel(level log.Level) zapcore.Level {
	switch level {
	case log.DebugLevel:
		return zapcore.DebugLevel
	case log.WarnLevel:
		return zapcore.WarnLevel
	case log.ErrorLevel:
		return zapcore.ErrorLevel
	case log.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(fields []log.Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zapField(f))
	}
	return out
}

func zapField(f log.Field) zap.Field {
	switch v := f.Value.(type) {
	case nil:
		return zap.Skip()
	case string:
		return zap.String(f.Key, v)
	case int:
		return zap.Int(f.Key, v)
	case int64:
		return zap.Int64(f.Key, v)
	case bool:
		return zap.Bool(f.Key, v)
	case time.Duration:
		return zap.Duration(f.Key, v)
	case time.Time:
		return zap.Time(f.Key, v)
	case error:
		if f.Key == log.FieldError {
			return zap.Error(v)
		}
		return zap.NamedError(f.Key, v)
	case fmt.Stringer:
		return zap.Stringer(f.Key, v)
	default:
		return zap.Any(f.Key, v)
	}
}

func timeEncoder(format string) zapcore.TimeEncoder {
	switch format {
	case "", time.RFC3339:
		return zapcore.RFC3339TimeEncoder
	case time.RFC3339Nano:
		return zapcore.RFC3339NanoTimeEncoder
	}
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format(format))
	}
}
