package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Init replaces the process logger. Unknown levels fall back to info.
func Init(service, level string, w io.Writer) *zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	l := zerolog.New(w).Level(lvl).With().Timestamp().Str("service", service).Logger()

	mu.Lock()
	base = l
	mu.Unlock()
	return &l
}

// L returns the process logger
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// WithContext returns the process logger enriched with the trace and span ids
// of the span carried by ctx, if any.
func WithContext(ctx context.Context) *zerolog.Logger {
	l := L()
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	withTrace := l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &withTrace
}
