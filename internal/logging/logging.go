// Package logging builds the process-wide zap logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hypewatch/internal/model"
)

// New constructs a logger from configuration. CLI commands get a console
// encoder on stderr; the serve daemon typically enables JSON output.
func New(cfg model.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	if !cfg.JSON {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	zcfg.DisableStacktrace = true

	return zcfg.Build()
}

// Nop returns a no-op logger for tests and optional call sites.
func Nop() *zap.Logger {
	return zap.NewNop()
}
