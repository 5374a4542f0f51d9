package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bassamadnan/veil/config"
)

// ParseLevel maps a configured level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger builds a logger from configuration. The terminal belongs to the
// UI, so output goes to the configured log file.
func InitLogger(cfg config.LoggingSettings) (*zap.Logger, error) {
	return build(ParseLevel(cfg.Level), cfg.Format == "json", cfg.File)
}

// InitConsoleLogger logs to stderr for one-shot commands.
func InitConsoleLogger(verbose bool, jsonFormat bool) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	return build(level, jsonFormat, "stderr")
}

func build(level zapcore.Level, jsonFormat bool, output string) (*zap.Logger, error) {
	var logConfig zap.Config
	if jsonFormat {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		if output == "stderr" {
			logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	if output == "" {
		output = "stderr"
	}
	logConfig.OutputPaths = []string{output}
	logConfig.ErrorOutputPaths = []string{output}

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
