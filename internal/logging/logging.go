package logging

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type requestIDKey struct{}

// New builds the process logger. Production gets JSON output so log
// shippers can parse it; everything else gets the text formatter.
func New(level, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// WithRequestID stores the request id for loggers built from ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// FromContext returns an entry tagged with the request id when one is set.
func FromContext(ctx context.Context, log logrus.FieldLogger) logrus.FieldLogger {
	if rid := RequestID(ctx); rid != "" {
		return log.WithField("request_id", rid)
	}
	return log
}
