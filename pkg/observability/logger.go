package observability

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger. format is "json" (default) or "text".
func NewLogger(level logrus.Level, format string, output io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(level)
	if output != nil {
		logger.SetOutput(output)
	}
	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
