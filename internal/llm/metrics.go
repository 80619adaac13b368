package llm

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type gatewayMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	tokens          metric.Int64Counter
}

var (
	metricsOnce sync.Once
	metrics     *gatewayMetrics
)

func ensureMetrics() *gatewayMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter("mdx-assistant/llm")

		requestCount, err := meter.Int64Counter(
			"ai.diagnosis.request.count",
			metric.WithDescription("Number of diagnosis requests sent to the model endpoint"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.diagnosis.request.duration",
			metric.WithDescription("Diagnosis request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.diagnosis.request.errors",
			metric.WithDescription("Number of failed diagnosis requests by failure kind"),
		)
		if err != nil {
			return
		}
		tokens, err := meter.Int64Counter(
			"ai.diagnosis.tokens",
			metric.WithDescription("Total tokens reported by the model endpoint"),
		)
		if err != nil {
			return
		}
		metrics = &gatewayMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			tokens:          tokens,
		}
	})
	return metrics
}

func recordCall(ctx context.Context, model string, profile Profile, duration time.Duration, totalTokens int, failure *Failure) {
	m := ensureMetrics()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
		attribute.String("ai.profile", profile.String()),
	}
	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if totalTokens > 0 {
		m.tokens.Add(ctx, int64(totalTokens), metric.WithAttributes(attrs...))
	}
	if failure != nil {
		attrs = append(attrs, attribute.String("ai.failure", string(failure.Kind)))
		if failure.StatusCode > 0 {
			attrs = append(attrs, attribute.Int("http.status_code", failure.StatusCode))
		}
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
