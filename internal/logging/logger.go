package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity
// when no level is passed explicitly.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "FAUXMO_LOG_LEVEL"

// Options controls where and how verbosely fauxmo logs.
type Options struct {
	// Level is one of debug, info, warn, error. Empty falls back to
	// FAUXMO_LOG_LEVEL and then to info.
	Level string

	// File, when set, additionally writes JSON logs to a rotated file.
	File string

	// MaxSizeMB and MaxBackups control file rotation.
	MaxSizeMB  int
	MaxBackups int
}

// Initialize creates a console logger with the specified level.
// If level is empty, it checks FAUXMO_LOG_LEVEL and defaults to info.
func Initialize(level string) error {
	return InitializeWithOptions(Options{Level: level})
}

// InitializeWithOptions creates the global logger. Console output always goes
// to stderr; a rotating file sink is added when opts.File is set.
func InitializeWithOptions(opts Options) error {
	zapLevel, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	atom := zap.NewAtomicLevelAt(zapLevel)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), atom),
	}

	if opts.File != "" {
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileCfg),
			zapcore.AddSync(rotatingWriter(opts)),
			atom,
		))
	}

	logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	return nil
}

// ParseLevel maps a level name to a zap level. An empty name reads
// FAUXMO_LOG_LEVEL and then defaults to info.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (use debug, info, warn or error)", level)
	}
}

// LevelFromVerbosity maps repeated -v flags onto a level name, the way the
// fauxmo CLI always has: none is warn, -v is info, -vv and up is debug.
func LevelFromVerbosity(count int) string {
	switch {
	case count <= 0:
		return "warn"
	case count == 1:
		return "info"
	default:
		return "debug"
	}
}

func rotatingWriter(opts Options) io.Writer {
	size := opts.MaxSizeMB
	if size <= 0 {
		size = 10
	}
	backups := opts.MaxBackups
	if backups <= 0 {
		backups = 3
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    size,
		MaxBackups: backups,
		Compress:   true,
	}
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback to silent logger if not initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// DebugEnabled reports whether debug output would be written.
func DebugEnabled() bool {
	return GetLogger().Core().Enabled(zapcore.DebugLevel)
}

// LogConnection logs a connection event
func LogConnection(remoteAddr string, device string, event string) {
	Debug("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("device", device),
		zap.String("event", event),
	)
}

// LogHTTPRequest logs a request made by a controller to an emulated device.
func LogHTTPRequest(remoteAddr string, device string, method string, path string, soapAction string) {
	Info("HTTP request received",
		zap.String("remote_addr", remoteAddr),
		zap.String("device", device),
		zap.String("method", method),
		zap.String("path", path),
		zap.String("soap_action", soapAction),
	)
}

// LogSSDPSearch logs a discovery request that fauxmo will answer.
func LogSSDPSearch(remoteAddr string, searchTarget string, mx float64, devices int) {
	Info("SSDP search received",
		zap.String("remote_addr", remoteAddr),
		zap.String("st", searchTarget),
		zap.Float64("mx", mx),
		zap.Int("devices", devices),
	)
}

// LogRawBytes logs raw bytes (useful for debugging protocol issues)
func LogRawBytes(label string, data []byte) {
	if !DebugEnabled() {
		return
	}
	Debug(label,
		zap.Int("length", len(data)),
		zap.String("ascii", asciiDump(data)),
	)
}

func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 2 KiB
	if len(data) > 2048 {
		data = data[:2048]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if (b >= 32 && b <= 126) || b == '\r' || b == '\n' {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
