package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// level is shared by every logger built here so LOG_LEVEL can be applied
// after init, once the config has been read.
var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

type ZapLogger struct {
	log *zap.SugaredLogger
}

var zapLogger *ZapLogger

// NewLogger builds the shared logger on top of config. The config's level is
// replaced by the package level, and timestamps are always ISO8601.
func NewLogger(config zap.Config) (*ZapLogger, error) {
	config.Level = level
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	base, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	zapLogger = &ZapLogger{log: base.Sugar()}
	return zapLogger, nil
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

// SetLevel changes the level of the shared logger at runtime.
// Unknown names are ignored and reported through the logger itself.
func SetLevel(name string) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		Warn("unknown log level, keeping current", "level", name, "current", level.String())
		return
	}
	level.SetLevel(l)
}

// Level returns the name of the current level.
func Level() string {
	return level.String()
}

// Sync flushes buffered entries. Binaries call it right before exiting.
func (l *ZapLogger) Sync() error {
	return l.log.Sync()
}

func (l *ZapLogger) Panic(message string, values ...any) {
	l.log.Panicw(message, values...)
}

func (l *ZapLogger) Fatal(err error, values ...any) {
	l.log.Fatalw(err.Error(), values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}

func (l *ZapLogger) Printf(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}
