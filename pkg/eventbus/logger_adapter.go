package eventbus

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"

	"leaguesync/pkg/logger"
)

// LoggerAdapter routes watermill logs into the service zap logger
type LoggerAdapter struct {
	log *logger.Logger
}

var _ watermill.LoggerAdapter = (*LoggerAdapter)(nil)

func NewLoggerAdapter(log *logger.Logger) *LoggerAdapter {
	if log == nil {
		log = logger.NewNop()
	}
	return &LoggerAdapter{log: log.Named("eventbus")}
}

func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.WithFields(fields).Error(msg, zap.Error(err))
}

func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.WithFields(fields).Info(msg)
}

func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.WithFields(fields).Debug(msg)
}

// Trace maps to debug; zap has no trace level
func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.WithFields(fields).Debug(msg)
}

func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{log: a.log.WithFields(fields)}
}
