package heartbeat

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics a bot exposes on /metrics.
type Metrics struct {
	commandsTotal *prometheus.CounterVec
	postsTotal    *prometheus.CounterVec
	pollErrors    *prometheus.CounterVec
	reloadsTotal  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance on its own registry, with the Go
// runtime and process collectors attached.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tor_admin_commands_total",
				Help: "Total number of admin commands handled by command and outcome",
			},
			[]string{"command", "outcome"},
		),

		postsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tor_post_decisions_total",
				Help: "Total number of post filter decisions by subreddit and outcome",
			},
			[]string{"subreddit", "outcome"},
		),

		pollErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tor_poll_errors_total",
				Help: "Total number of polling loop errors by kind",
			},
			[]string{"kind"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tor_settings_reloads_total",
				Help: "Total number of settings reload attempts by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.commandsTotal,
		m.postsTotal,
		m.pollErrors,
		m.reloadsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordCommand records one admin command outcome.
func (m *Metrics) RecordCommand(command, outcome string) {
	m.commandsTotal.WithLabelValues(command, outcome).Inc()
}

// RecordPost records one post filter decision.
func (m *Metrics) RecordPost(subreddit, outcome string) {
	m.postsTotal.WithLabelValues(subreddit, outcome).Inc()
}

// RecordPollError records a polling loop error. kind is "transient" or
// "fatal".
func (m *Metrics) RecordPollError(kind string) {
	m.pollErrors.WithLabelValues(kind).Inc()
}

// RecordReload records a settings reload attempt.
func (m *Metrics) RecordReload(status string) {
	m.reloadsTotal.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
