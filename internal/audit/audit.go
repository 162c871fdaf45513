// Package audit deja rastro estructurado de cada decisión de reconciliación.
// El destino es el log (un recolector externo lo indexa); acá solo se
// normaliza el evento.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/passlane/internal/observability/logger"
)

// Event es una decisión de reconciliación ya tomada.
type Event struct {
	Decision       string
	AccountID      string
	Channel        string
	Destination    string
	Target         string
	InteractionJTI string
	At             time.Time
}

// Recorder registra eventos de auditoría.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// LogRecorder implementa Recorder sobre el logger estructurado.
type LogRecorder struct {
	log *zap.Logger
}

// NewLogRecorder crea el recorder con un logger dedicado.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{log: logger.Named("audit")}
}

// Record emite el evento. El destino se loguea enmascarado.
func (r *LogRecorder) Record(_ context.Context, e Event) {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	fields := []zap.Field{
		logger.Decision(e.Decision),
		logger.AccountID(e.AccountID),
		logger.InteractionID(e.InteractionJTI),
		zap.Time("at", at),
	}
	if e.Channel != "" {
		fields = append(fields, logger.Channel(e.Channel), logger.Destination(e.Destination))
	}
	if e.Target != "" {
		fields = append(fields, logger.Connector(e.Target))
	}
	r.log.Info("reconciliation decision", fields...)
}

var _ Recorder = (*LogRecorder)(nil)
