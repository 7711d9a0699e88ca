package gemini

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type geminiMetricSet struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	geminiMetricsOnce sync.Once
	geminiMetrics     *geminiMetricSet
)

func ensureGeminiMetrics() *geminiMetricSet {
	geminiMetricsOnce.Do(func() {
		meter := otel.Meter("github.com/moinmakda/ChemoCareAI/gemini")

		requestCount, err := meter.Int64Counter(
			"ai.gemini.request.count",
			metric.WithDescription("Number of Gemini requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.gemini.request.duration",
			metric.WithDescription("Gemini request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.gemini.request.errors",
			metric.WithDescription("Number of Gemini request errors"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.gemini.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the Gemini rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		geminiMetrics = &geminiMetricSet{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
	})
	return geminiMetrics
}

func recordGeminiMetric(ctx context.Context, model, op string, statusCode int, duration time.Duration, err error) {
	m := ensureGeminiMetrics()
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
		attribute.String("ai.operation", op),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordGeminiRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	m := ensureGeminiMetrics()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", model),
	}
	m.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
