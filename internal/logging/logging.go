// Package logging configures zerolog and threads a correlation id through context.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type correlationKey struct{}

// Init configures the global logger. Development gets a human readable console writer.
func Init(env, level string) {
	InitWithWriter(env, level, os.Stderr)
}

// InitWithWriter is Init with an explicit output.
func InitWithWriter(env, level string, w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	// loggers pulled from a bare context fall back to the global one
	zerolog.DefaultContextLogger = &log.Logger
}

// WithCorrelationID stores id on ctx together with a child logger that carries it.
// An empty id is replaced by a fresh uuid.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	logger := zerolog.Ctx(ctx).With().Str("correlation_id", id).Logger()
	ctx = context.WithValue(ctx, correlationKey{}, id)
	return logger.WithContext(ctx)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
