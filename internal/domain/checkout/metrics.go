package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/recregt/e-kktc/internal/domain/checkout"

type metrics struct {
	submissions   metric.Int64Counter
	compensations metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	submissions, err := meter.Int64Counter("checkout.submissions",
		metric.WithDescription("Checkout runs by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "submissions counter")
	}
	compensations, err := meter.Int64Counter("checkout.compensations",
		metric.WithDescription("Compensating deletes of order headers by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "compensations counter")
	}
	return &metrics{
		submissions:   submissions,
		compensations: compensations,
	}, nil
}

func (m *metrics) outcome(ctx context.Context, outcome string) {
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metrics) compensation(ctx context.Context, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.compensations.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
