// Package log writes structured diagnostics to a daily file in the logs directory.
// Until Setup enables it every entry is dropped.
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/anisan-cli/anistream/filesystem"
	"github.com/anisan-cli/anistream/key"
	"github.com/anisan-cli/anistream/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Fields saves callers an import of logrus.
type Fields = logrus.Fields

var logger = silent()

func silent() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Setup opens today's log file and applies the format and level settings.
func Setup() error {
	if !viper.GetBool(key.LogsWrite) {
		logger = silent()
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, time.Now().Format(time.DateOnly)+".log")
	f, err := filesystem.API().OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	l := logrus.New()
	l.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	logger = l
	return nil
}

// Enabled reports whether entries reach the log file.
func Enabled() bool {
	return logger.Out != io.Discard
}

// WithFields returns an entry carrying fields.
func WithFields(fields Fields) *logrus.Entry {
	return logger.WithFields(fields)
}

func WithField(key string, value any) *logrus.Entry {
	return logger.WithField(key, value)
}

func Error(args ...any) {
	logger.Error(args...)
}

func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}
