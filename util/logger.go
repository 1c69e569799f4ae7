// Package util - zap logger construction
package util

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig controls where and how verbosely InitLogger writes
type LogConfig struct {
	Level string // debug, info, warn, error
	File  string // optional; rotated by lumberjack when set
}

// InitLogger sets up the Zap Logger to log to the console in a human readable format.
// When a file is configured, output is mirrored into a size-rotated log file.
func InitLogger(cfg LogConfig) *zap.Logger {
	prodConfig := zap.NewProductionConfig()
	prodConfig.Encoding = "console"
	prodConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	prodConfig.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(GetStringOrDefault(cfg.Level, "info"))); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	encoder := zapcore.NewConsoleEncoder(prodConfig.EncoderConfig)
	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	return zap.New(core)
}
