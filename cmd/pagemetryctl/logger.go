package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"pagemetry/internal/config"
)

// newCtlLogger builds the control tool's logger: human-readable output on
// stderr plus a rotating file so admin actions leave an audit trail.
func newCtlLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logDir := cfg.GetLogDirectory()
	if logDir == "" {
		logger.SetOutput(os.Stderr)
		return logger
	}

	rotating := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "pagemetryctl.log"),
		MaxSize:    cfg.GetLogMaxSizeMB(),
		MaxBackups: cfg.GetLogMaxBackups(),
		MaxAge:     cfg.GetLogMaxAgeDays(),
		Compress:   true,
	}

	logger.SetOutput(io.MultiWriter(os.Stderr, rotating))
	return logger
}
