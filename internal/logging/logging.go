package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

var (
	currentLevel atomic.Int32
	initOnce     sync.Once

	loggerMu sync.RWMutex
	leveled  *zap.SugaredLogger // gated by atomLevel
	plain    *zap.SugaredLogger // always prints
	atom     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// ParseLevel converts a level name into a LogLevel. The second return value
// is false when the name is not recognised.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

// levelFromEnv resolves the level from DEBUG first, then LOG_LEVEL.
func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	level, _ := ParseLevel(os.Getenv("LOG_LEVEL"))
	return level
}

func ensureInit() {
	initOnce.Do(func() {
		level := levelFromEnv()
		currentLevel.Store(int32(level))
		atom.SetLevel(level.zapLevel())
		setWriter(os.Stderr, os.Getenv("LOG_FORMAT"))
	})
}

func setWriter(w io.Writer, format string) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.TimeKey = "timestamp"
	encCfg.MessageKey = "message"
	encCfg.LevelKey = "level"
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	var enc zapcore.Encoder
	if strings.EqualFold(format, "json") {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	sink := zapcore.AddSync(w)

	loggerMu.Lock()
	defer loggerMu.Unlock()
	leveled = zap.New(zapcore.NewCore(enc, sink, atom)).Sugar()
	plain = zap.New(zapcore.NewCore(enc, sink, zapcore.DebugLevel)).Sugar()
}

// SetOutput redirects all log output to w. Used by tests and CLIs that want
// log lines on a specific stream.
func SetOutput(w io.Writer) {
	ensureInit()
	setWriter(w, os.Getenv("LOG_FORMAT"))
}

// SetLevel overrides the level picked up from the environment.
func SetLevel(level LogLevel) {
	ensureInit()
	currentLevel.Store(int32(level))
	atom.SetLevel(level.zapLevel())
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	ensureInit()
	return LogLevel(currentLevel.Load())
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func current() *zap.SugaredLogger {
	ensureInit()
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return leveled
}

func always() *zap.SugaredLogger {
	ensureInit()
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return plain
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	current().Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	current().Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	current().Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	current().Errorf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	always().Fatalf(format, args...)
}

// Printf logs a message regardless of the configured level.
func Printf(format string, args ...interface{}) {
	always().Infof(format, args...)
}

// Println logs its arguments regardless of the configured level.
func Println(args ...interface{}) {
	always().Infoln(args...)
}

// Sync flushes buffered log entries. Call before the process exits.
func Sync() error {
	return current().Sync()
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
