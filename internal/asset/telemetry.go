package asset

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/civicweb/cms/internal/asset"

var tracer trace.Tracer = otel.Tracer(instrumentationName)

type instruments struct {
	uploads        metric.Int64Counter
	uploadFailures metric.Int64Counter
	deletes        metric.Int64Counter
	deleteFailures metric.Int64Counter
	orphans        metric.Int64Counter
}

var meters = sync.OnceValue(func() instruments {
	m := otel.Meter(instrumentationName)
	return instruments{
		uploads:        counter(m, "asset.uploads", "Objects uploaded to the remote store"),
		uploadFailures: counter(m, "asset.upload_failures", "Uploads rejected by the remote store"),
		deletes:        counter(m, "asset.deletes", "Remote deletes issued"),
		deleteFailures: counter(m, "asset.delete_failures", "Remote deletes that failed and were swallowed"),
		orphans:        counter(m, "asset.orphans", "Uploaded objects left unreferenced after a failed reconciliation"),
	}
})

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter(name)
	}
	return c
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
