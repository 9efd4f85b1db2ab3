package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce         sync.Once
	metricsInitErr      error
	commandCounter      metric.Int64Counter
	commandLatency      metric.Float64Histogram
	postDecisionCounter metric.Int64Counter
	pollErrorCounter    metric.Int64Counter
	pollBackoffCounter  metric.Float64Counter
)

// CommandMetrics captures one admin command evaluation.
type CommandMetrics struct {
	Subreddit string
	Command   string
	Outcome   string
	Duration  time.Duration
}

// PostMetrics captures one post filter decision.
type PostMetrics struct {
	Subreddit string
	Category  string
	Outcome   string
	Reason    string
}

// RecordCommandMetrics counts an admin command evaluation and its latency.
func RecordCommandMetrics(ctx context.Context, m CommandMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("subreddit", m.Subreddit),
		attribute.String("command.name", m.Command),
		attribute.String("decision.outcome", m.Outcome),
	)
	commandCounter.Add(ctx, 1, attrs)
	if m.Duration > 0 {
		commandLatency.Record(ctx, float64(m.Duration)/float64(time.Millisecond), attrs)
	}
}

// RecordPostMetrics counts a post filter decision.
func RecordPostMetrics(ctx context.Context, m PostMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("subreddit", m.Subreddit),
		attribute.String("post.category", m.Category),
		attribute.String("decision.outcome", m.Outcome),
	}
	if m.Reason != "" {
		attrs = append(attrs, attribute.String("decision.reason", m.Reason))
	}
	postDecisionCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPollError counts a polling loop error and the backoff it caused.
func RecordPollError(ctx context.Context, kind string, backoff time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("error.kind", kind))
	pollErrorCounter.Add(ctx, 1, attrs)
	if backoff > 0 {
		pollBackoffCounter.Add(ctx, backoff.Seconds(), attrs)
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter(InstrumentationName)

		commandCounter, metricsInitErr = meter.Int64Counter(
			"tor.command.evaluations_total",
			metric.WithDescription("Admin command evaluations partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		commandLatency, metricsInitErr = meter.Float64Histogram(
			"tor.command.duration_ms",
			metric.WithDescription("Observed admin command latency"),
			metric.WithUnit("ms"),
		)
		if metricsInitErr != nil {
			return
		}

		postDecisionCounter, metricsInitErr = meter.Int64Counter(
			"tor.post.decisions_total",
			metric.WithDescription("Post filter decisions partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		pollErrorCounter, metricsInitErr = meter.Int64Counter(
			"tor.poll.errors_total",
			metric.WithDescription("Polling loop errors partitioned by kind"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		pollBackoffCounter, metricsInitErr = meter.Float64Counter(
			"tor.poll.backoff_seconds_total",
			metric.WithDescription("Time spent backing off after transient polling errors"),
			metric.WithUnit("s"),
		)
	})

	return metricsInitErr
}
