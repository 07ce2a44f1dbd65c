package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests metric.Int64Counter
	HTTPDuration metric.Float64Histogram

	Operations        metric.Int64Counter
	OperationFailures metric.Int64Counter
	Liquidations      metric.Int64Counter
	InboundTransfers  metric.Int64Counter
	OutboundSends     metric.Int64Counter
	PendingDeliveries metric.Int64UpDownCounter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"olnd_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"olnd_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Operations, err = meter.Int64Counter(
		"olnd_ledger_operations_total",
		metric.WithDescription("Ledger operations executed, labeled by kind"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.OperationFailures, err = meter.Int64Counter(
		"olnd_ledger_operation_failures_total",
		metric.WithDescription("Ledger operations rejected, labeled by kind"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.Liquidations, err = meter.Int64Counter(
		"olnd_liquidations_total",
		metric.WithDescription("Successful liquidations"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.InboundTransfers, err = meter.Int64Counter(
		"olnd_inbound_transfers_total",
		metric.WithDescription("Inbound cross-chain deliveries accepted"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.OutboundSends, err = meter.Int64Counter(
		"olnd_outbound_sends_total",
		metric.WithDescription("Outbound cross-chain sends handed to the gateway"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PendingDeliveries, err = meter.Int64UpDownCounter(
		"olnd_pending_deliveries",
		metric.WithDescription("Outbound sends committed in the ledger but not delivered"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.Handler()
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordOperation(ctx context.Context, kind string, err error) {
	labels := metric.WithAttributes(attribute.String("kind", kind))
	if err != nil {
		m.OperationFailures.Add(ctx, 1, labels)
		return
	}
	m.Operations.Add(ctx, 1, labels)
	if kind == "liquidate" {
		m.Liquidations.Add(ctx, 1)
	}
}

func (m *Metrics) RecordInbound(ctx context.Context, action string) {
	m.InboundTransfers.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}

func (m *Metrics) RecordOutbound(ctx context.Context, asset string) {
	m.OutboundSends.Add(ctx, 1, metric.WithAttributes(attribute.String("asset", asset)))
}

func (m *Metrics) IncrementPendingDeliveries(ctx context.Context) {
	m.PendingDeliveries.Add(ctx, 1)
}

func (m *Metrics) DecrementPendingDeliveries(ctx context.Context) {
	m.PendingDeliveries.Add(ctx, -1)
}
