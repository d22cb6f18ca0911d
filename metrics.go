package sqlsnap

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/prashanthpai/sqlsnap"

// metrics mirrors Stats into OpenTelemetry instruments.
type metrics struct {
	hits          metric.Int64Counter
	misses        metric.Int64Counter
	errors        metric.Int64Counter
	invalidations metric.Int64Counter
	rows          metric.Int64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(meterName)
	}

	hits, err := meter.Int64Counter(
		"sqlsnap.cache.hits",
		metric.WithDescription("Queries answered from a cached snapshot"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"sqlsnap.cache.misses",
		metric.WithDescription("Cacheable queries sent to the database"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"sqlsnap.cache.errors",
		metric.WithDescription("Cache backend failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	invalidations, err := meter.Int64Counter(
		"sqlsnap.cache.invalidations",
		metric.WithDescription("Table tags invalidated by writes"),
		metric.WithUnit("{tag}"),
	)
	if err != nil {
		return nil, err
	}

	rows, err := meter.Int64Histogram(
		"sqlsnap.snapshot.rows",
		metric.WithDescription("Rows captured per snapshot"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{
		hits:          hits,
		misses:        misses,
		errors:        errs,
		invalidations: invalidations,
		rows:          rows,
	}, nil
}

func (m *metrics) hit(ctx context.Context)  { m.hits.Add(ctx, 1) }
func (m *metrics) miss(ctx context.Context) { m.misses.Add(ctx, 1) }

func (m *metrics) failed(ctx context.Context, op string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("sqlsnap.op", op)))
}

func (m *metrics) invalidated(ctx context.Context, tags []string) {
	for _, tag := range tags {
		m.invalidations.Add(ctx, 1, metric.WithAttributes(attribute.String("sqlsnap.tag", tag)))
	}
}

func (m *metrics) captured(ctx context.Context, rows int) {
	m.rows.Record(ctx, int64(rows))
}
