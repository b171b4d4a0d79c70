package http

import (
	"fmt"

	"github.com/fivetwenty-io/ledgerdesk/pkg/ledger"
	"github.com/hashicorp/go-retryablehttp"
)

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

// leveledLogger feeds retryablehttp's own diagnostics into a ledger.Logger.
type leveledLogger struct {
	logger ledger.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, toFields(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, toFields(keysAndValues))
}

func toFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}

		switch v := keysAndValues[i+1].(type) {
		case fmt.Stringer:
			fields[key] = v.String()
		case error:
			fields[key] = v.Error()
		default:
			fields[key] = fmt.Sprintf("%v", v)
		}
	}

	return fields
}
