package audit

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"botfoundation/models"
)

// ZapAuditLogger writes audit records as structured zap entries
type ZapAuditLogger struct {
	logger *zap.Logger
}

func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{logger: logger}
}

func levelFor(level models.AuditLevel) zapcore.Level {
	switch level {
	case models.AuditLevelDebug:
		return zapcore.DebugLevel
	case models.AuditLevelWarn:
		return zapcore.WarnLevel
	case models.AuditLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapAuditLogger) Record(record models.AuditRecord) {
	ce := l.logger.Check(levelFor(record.Level), record.Message)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, len(record.Fields)+2)
	if record.Component != "" {
		fields = append(fields, zap.String("component", record.Component))
	}
	if record.Stage != "" {
		fields = append(fields, zap.String("stage", string(record.Stage)))
	}

	keys := make([]string, 0, len(record.Fields))
	for key := range record.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := record.Fields[key]
		if err, ok := value.(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, value))
	}

	ce.Write(fields...)
}
