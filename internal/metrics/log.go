package metrics

import (
	"context"

	"github.com/rs/zerolog"
)

// LogRecorder writes each record as a structured log line on the context logger.
type LogRecorder struct{}

func (LogRecorder) RecordOrderCreation(ctx context.Context, r Record) {
	logger := zerolog.Ctx(ctx)
	var ev *zerolog.Event
	if r.Success {
		ev = logger.Info()
	} else {
		ev = logger.Warn().Str("error_reason", r.ErrorReason)
	}
	ev.Str("operation_id", r.OperationID).
		Str("title", r.Title).
		Str("isbn", r.ISBN).
		Str("category", r.Category).
		Dur("validation_ms", r.ValidationDuration).
		Dur("database_ms", r.DatabaseDuration).
		Dur("total_ms", r.TotalDuration).
		Bool("success", r.Success).
		Msg("order creation metrics")
}
