// Package logging builds the process-wide zap logger from config.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hpungsan/wisdom/internal/config"
)

// New returns a zap logger for the configured level and format.
// Output goes to stderr so the MCP stdio transport keeps stdout to itself.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	level := zapcore.InfoLevel
	if name := strings.ToLower(strings.TrimSpace(cfg.LogLevel)); name != "" {
		parsed, err := zapcore.ParseLevel(name)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
		}
		level = parsed
	}

	var zc zap.Config
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "", "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log_format %q: want json or console", cfg.LogFormat)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
