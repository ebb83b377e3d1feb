package main

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const serviceName = "s3facade"

func setupLogging() {
	slog.SetDefault(newLogger(os.Stderr, os.Getenv))
}

// newLogger writes text records to w. S3FACADE_DEBUG enables debug records
// and S3FACADE_OTEL_LOGS=true also sends every record to the otel log bridge.
func newLogger(w io.Writer, getenv func(string) string) *slog.Logger {
	var opts *slog.HandlerOptions
	if getenv("S3FACADE_DEBUG") != "" {
		opts = &slog.HandlerOptions{Level: slog.LevelDebug}
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if getenv("S3FACADE_OTEL_LOGS") == "true" {
		handler = slogmulti.Fanout(handler, otelslog.NewHandler(serviceName))
	}
	return slog.New(handler).With(slog.String("service", serviceName))
}
