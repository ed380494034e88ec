package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

type contextKey string

const loggerKey = contextKey("logger")

var (
	defaultLogger     logrus.FieldLogger
	defaultLoggerOnce sync.Once
)

// DefaultLogger returns the process-wide logger writing text records to stderr at info level
func DefaultLogger() logrus.FieldLogger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = NewLogger(os.Stderr, logrus.InfoLevel)
	})
	return defaultLogger
}

// NewLogger returns a logger writing text records with full timestamps to w
func NewLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return logger
}

// NewLoggerFromLevel parses the level name ("debug", "info", "warn", ...) and returns a logger for it
func NewLoggerFromLevel(w io.Writer, name string) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	return NewLogger(w, level), nil
}

func WithLogger(ctx context.Context, logger logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

func FromContext(ctx context.Context) logrus.FieldLogger {
	if logger, ok := ctx.Value(loggerKey).(logrus.FieldLogger); ok {
		return logger
	}
	return DefaultLogger()
}
