package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Setup builds the process logger. format is "text" or "json".
func Setup(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return l, nil
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
