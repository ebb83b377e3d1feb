package storage

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	uploadCount   metric.Int64Counter
	uploadBytes   metric.Int64Counter
	downloadCount metric.Int64Counter
	downloadBytes metric.Int64Counter
)

func init() {
	meter := otel.Meter(instrumentationName)

	var err error
	uploadCount, err = meter.Int64Counter(
		"s3facade.upload.count",
		metric.WithDescription("Number of completed uploads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create upload.count counter: %w", err))
	}

	uploadBytes, err = meter.Int64Counter(
		"s3facade.upload.bytes",
		metric.WithUnit("By"),
		metric.WithDescription("Bytes uploaded"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create upload.bytes counter: %w", err))
	}

	downloadCount, err = meter.Int64Counter(
		"s3facade.download.count",
		metric.WithDescription("Number of completed downloads"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create download.count counter: %w", err))
	}

	downloadBytes, err = meter.Int64Counter(
		"s3facade.download.bytes",
		metric.WithUnit("By"),
		metric.WithDescription("Bytes downloaded"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create download.bytes counter: %w", err))
	}
}
