package logger

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// Init installs the global JSON logger at the given level.
// Unknown levels fall back to info.
func Init(level string) {
	Set(NewJSON(ParseLevel(level)))
	Info("Logger initialized", "level", ParseLevel(level).String())
}

// ParseLevel maps LOG_LEVEL strings to zap levels
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewJSON builds a zap logger writing JSON lines to stdout
func NewJSON(level zapcore.Level) *zap.Logger {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		level,
	)

	// skip the package-level wrappers when reporting the caller
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Set replaces the global logger. A nil logger installs a nop logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	current.Store(l)
}

// L returns the global zap logger
func L() *zap.Logger {
	return current.Load()
}

// Sync flushes buffered log entries
func Sync() error {
	return current.Load().Sync()
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	write(zapcore.DebugLevel, msg, args)
}

// Info logs an info message
func Info(msg string, args ...any) {
	write(zapcore.InfoLevel, msg, args)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	write(zapcore.WarnLevel, msg, args)
}

// Error logs an error message
func Error(msg string, args ...any) {
	write(zapcore.ErrorLevel, msg, args)
}

func write(level zapcore.Level, msg string, args []any) {
	if ce := current.Load().Check(level, msg); ce != nil {
		ce.Write(fields(args)...)
	}
}

// fields converts alternating key/value pairs into zap fields
func fields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	out := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = "arg"
		}

		if i+1 >= len(args) {
			out = append(out, zap.Any(key, nil))
			break
		}

		if err, ok := args[i+1].(error); ok {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, args[i+1]))
	}

	return out
}
