package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// Options controls where log output is written
type Options struct {
	// Level is one of debug, info, warn, error
	Level string
	// FilePath receives a plain-text copy of every record; empty disables it
	FilePath string
}

// Init replaces the process logger with a console logger on stderr and, when
// configured, a file logger. The log file is truncated on every start.
func Init(opts Options) (func(), error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	consoleEncoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleEncoder.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.Lock(os.Stderr), level),
	}

	var file *os.File
	if opts.FilePath != "" {
		file, err = os.OpenFile(opts.FilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		fileEncoder := zap.NewProductionEncoderConfig()
		fileEncoder.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		fileEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoder), zapcore.AddSync(file), level))
	}

	logger = zap.New(zapcore.NewTee(cores...)).Named("discord_bot")

	return func() {
		_ = logger.Sync()
		if file != nil {
			_ = file.Close()
		}
	}, nil
}

// SetLogger swaps the process logger, mainly for tests
func SetLogger(l *zap.Logger) {
	logger = l
}

// Named returns a child logger tagged with a component name
func Named(component string) *zap.Logger {
	return logger.Named(component)
}

func Info(msg string, keysAndValues ...any) {
	logger.Sugar().Infow(msg, keysAndValues...)
}

func Debug(msg string, keysAndValues ...any) {
	logger.Sugar().Debugw(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	logger.Sugar().Warnw(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	logger.Sugar().Errorw(msg, keysAndValues...)
}
