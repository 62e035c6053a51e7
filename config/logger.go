package config

import (
	"strings"

	"github.com/arloliu/linknode/logger"
)

// NewLogger builds a logger from the Log section of the configuration.
func NewLogger(c *Config) logger.Logger {
	level := parseLevel(c.Log.Level)

	if c.Log.Backend == "zap" {
		zapCfg := logger.ZapConfig{
			Level:   level,
			Console: c.Log.Format == "console",
			Outputs: c.Log.Outputs,
		}
		if c.Log.Rotation.Enable {
			zapCfg.Rotation = &logger.RotationConfig{
				MaxSizeMB:  c.Log.Rotation.MaxSizeMB,
				MaxBackups: c.Log.Rotation.MaxBackups,
				MaxAgeDays: c.Log.Rotation.MaxAgeDays,
				Compress:   c.Log.Rotation.Compress,
			}
		}

		return logger.NewZap(zapCfg)
	}

	return logger.NewSlog(level, false)
}

func parseLevel(s string) logger.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}
