package observability

import (
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures the service logger. File, when set, adds a rotating JSON
// file sink next to stderr.
type LogOptions struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

var (
	fileSinksMu sync.Mutex
	fileSinks   []*lumberjack.Logger
)

func NewLogger(opts LogOptions) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Level = parseLogLevel(opts.Level)

	if strings.TrimSpace(opts.File) == "" {
		return config.Build()
	}

	sink := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	fileSinksMu.Lock()
	fileSinks = append(fileSinks, sink)
	fileSinksMu.Unlock()

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(config.EncoderConfig),
		zapcore.AddSync(sink),
		config.Level,
	)
	return config.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

func parseLogLevel(s string) zap.AtomicLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case "WARN":
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	case "ERROR":
		return zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	}
}

// closeFileSinks closes every rotating file opened by NewLogger.
func closeFileSinks() error {
	fileSinksMu.Lock()
	defer fileSinksMu.Unlock()
	var firstErr error
	for _, s := range fileSinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	fileSinks = nil
	return firstErr
}
