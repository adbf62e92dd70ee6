package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/M-Samuel/security-camera/internal/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger provides leveled logging (debug/info/warning/error) to stderr and,
// when a log directory is configured, to per-level files.
type Logger struct {
	sugar *zap.SugaredLogger
	files []*lumberjack.Logger
}

// NewLogger builds a Logger from the configuration. Standard output is never
// written to; it carries the command results.
func NewLogger(config *config.Config) (*Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(config.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.LogLevel, err)
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level),
	}

	l := &Logger{}
	if config.LogDirectory != "" {
		if err := os.MkdirAll(config.LogDirectory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		for _, file := range []struct {
			name    string
			enabled zap.LevelEnablerFunc
		}{
			{"info.log", func(lvl zapcore.Level) bool { return lvl == zapcore.InfoLevel && level.Enabled(lvl) }},
			{"warning.log", func(lvl zapcore.Level) bool { return lvl == zapcore.WarnLevel && level.Enabled(lvl) }},
			{"error.log", func(lvl zapcore.Level) bool { return lvl >= zapcore.ErrorLevel }},
		} {
			writer := &lumberjack.Logger{
				Filename:   filepath.Join(config.LogDirectory, file.name),
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			}
			l.files = append(l.files, writer)
			cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.AddSync(writer), file.enabled))
		}
	}

	l.sugar = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
	return l, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.sugar.Debugf(format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Close flushes buffered entries and closes the log files.
func (l *Logger) Close() error {
	// Sync on a console stderr fails with EINVAL on some platforms.
	_ = l.sugar.Sync()
	var err error
	for _, f := range l.files {
		err = multierr.Append(err, f.Close())
	}
	return err
}
