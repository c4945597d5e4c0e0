package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for service spans and metrics.
const TracerName = "gradebook.services"

// Metrics are the business counters the services record.
type Metrics struct {
	ImportsTotal    metric.Int64Counter
	ImportRowsTotal metric.Int64Counter
	ImportWarnings  metric.Int64Counter
	StudentsCreated metric.Int64Counter
	RosterBuilds    metric.Int64Counter
	RosterStudents  metric.Int64Histogram
}

// NewMetrics creates the service instruments on meter. A nil meter uses
// the global provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(TracerName)
	}
	var m Metrics
	var err error

	if m.ImportsTotal, err = meter.Int64Counter("gradebook_imports_total",
		metric.WithDescription("Spreadsheet imports by kind and outcome")); err != nil {
		return nil, fmt.Errorf("imports counter: %w", err)
	}
	if m.ImportRowsTotal, err = meter.Int64Counter("gradebook_import_rows_total",
		metric.WithDescription("Records saved from imports")); err != nil {
		return nil, fmt.Errorf("import rows counter: %w", err)
	}
	if m.ImportWarnings, err = meter.Int64Counter("gradebook_import_warnings_total",
		metric.WithDescription("Rows skipped or flagged during import")); err != nil {
		return nil, fmt.Errorf("import warnings counter: %w", err)
	}
	if m.StudentsCreated, err = meter.Int64Counter("gradebook_students_created_total",
		metric.WithDescription("Students created because an import named someone new")); err != nil {
		return nil, fmt.Errorf("students counter: %w", err)
	}
	if m.RosterBuilds, err = meter.Int64Counter("gradebook_roster_builds_total",
		metric.WithDescription("Class rosters computed")); err != nil {
		return nil, fmt.Errorf("roster counter: %w", err)
	}
	if m.RosterStudents, err = meter.Int64Histogram("gradebook_roster_students",
		metric.WithDescription("Students per computed roster")); err != nil {
		return nil, fmt.Errorf("roster histogram: %w", err)
	}
	return &m, nil
}

func noopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(TracerName))
	return m
}

func tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func kindAttr(kind ImportKind) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", string(kind)))
}

func (m *Metrics) importDone(ctx context.Context, kind ImportKind, outcome string, rows, warnings int) {
	m.ImportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome)))
	m.ImportRowsTotal.Add(ctx, int64(rows), kindAttr(kind))
	m.ImportWarnings.Add(ctx, int64(warnings), kindAttr(kind))
}
