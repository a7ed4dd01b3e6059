package logger

import (
	"github.com/oagudo/txscope/internal/config"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger with the configured level and a timestamped text format.
func New(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	log.SetLevel(logrus.Level(cfg.Log.Level))
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:     true,
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})

	return log
}
