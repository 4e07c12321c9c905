package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded during batch fetching.
type Metrics struct {
	queries      metric.Int64Counter
	queriesSaved metric.Int64Counter
	parentCount  metric.Int64Histogram
	resultRows   metric.Int64Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *Metrics
)

// InitMetrics creates the fetch instruments against the global meter
// provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("relfetch")

	queries, err := meter.Int64Counter(
		"relfetch.queries.total",
		metric.WithDescription("Total number of queries issued by batch fetching"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queries counter: %w", err)
	}

	queriesSaved, err := meter.Int64Counter(
		"relfetch.queries.saved",
		metric.WithDescription("Number of per-entity queries avoided by batching"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create queries saved counter: %w", err)
	}

	parentCount, err := meter.Int64Histogram(
		"relfetch.batch.parent_count",
		metric.WithDescription("Number of parent keys included in a batch query"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parent count histogram: %w", err)
	}

	resultRows, err := meter.Int64Histogram(
		"relfetch.batch.result_rows",
		metric.WithDescription("Number of rows returned by a batch query"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create result rows histogram: %w", err)
	}

	return &Metrics{
		queries:      queries,
		queriesSaved: queriesSaved,
		parentCount:  parentCount,
		resultRows:   resultRows,
	}, nil
}

func fetchMetrics() *Metrics {
	metricsOnce.Do(func() {
		m, err := InitMetrics()
		if err != nil {
			slog.Default().Warn("fetch metrics disabled", "error", err)
			return
		}
		metricsInst = m
	})
	return metricsInst
}

// RecordQuery records one issued query over a batch of parent keys.
func (m *Metrics) RecordQuery(ctx context.Context, relation string, parentKeys int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("relation_type", relation))
	m.queries.Add(ctx, 1, attrs)
	m.parentCount.Record(ctx, int64(parentKeys), attrs)
	if parentKeys > 1 {
		m.queriesSaved.Add(ctx, int64(parentKeys-1), attrs)
	}
}

// RecordResultRows records the row count returned by a batch query.
func (m *Metrics) RecordResultRows(ctx context.Context, relation string, rows int) {
	if m == nil {
		return
	}
	m.resultRows.Record(ctx, int64(rows), metric.WithAttributes(attribute.String("relation_type", relation)))
}
