// Package telemetry adapts logrus and Prometheus to the client's Logger and
// Observer hooks.
package telemetry

import (
	"io"
	"os"
	"strings"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// LoggerConfig configures NewLogger.
type LoggerConfig struct {
	// Level is a logrus level name; unknown names fall back to info.
	Level string
	// Format is "json" or "text".
	Format string
	// Output defaults to stderr.
	Output io.Writer
	// Fields are attached to every entry.
	Fields map[string]interface{}
}

// LogrusLogger implements ledger.Logger on top of logrus.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a logger from cfg.
func NewLogger(cfg LoggerConfig) *LogrusLogger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "@timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: timestampFormat,
			FullTimestamp:   true,
		})
	}

	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}

	return &LogrusLogger{entry: logger.WithFields(cfg.Fields)}
}

// FromLogrus wraps an existing logrus logger.
func FromLogrus(logger *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(logger)}
}

// Debug logs at debug level.
func (l *LogrusLogger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Debug(msg)
}

// Info logs at info level.
func (l *LogrusLogger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Info(msg)
}

// Warn logs at warn level.
func (l *LogrusLogger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Warn(msg)
}

// Error logs at error level.
func (l *LogrusLogger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Error(msg)
}

var _ ledger.Logger = (*LogrusLogger)(nil)
