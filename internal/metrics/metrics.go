// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "folio_form_sessions_active",
			Help: "Number of visitor form sessions currently held in memory.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "folio_form_session_evict_total",
			Help: "Cumulative number of form sessions evicted from the store.",
		})

	FormTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_form_transitions_total",
			Help: "Form status transitions, by destination status.",
		}, []string{"status"})

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_form_submissions_total",
			Help: "Submit attempts, by outcome (success, error, invalid, busy, rejected).",
		}, []string{"outcome"})

	ValidationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "folio_form_validation_errors_total",
			Help: "Field validation failures surfaced to visitors, by field.",
		}, []string{"field"})

	SendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "folio_form_send_duration_seconds",
			Help:    "Wall time of one complete send, all actions included.",
			Buckets: prometheus.DefBuckets,
		})

	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "folio_form_action_duration_seconds",
			Help:    "Wall time of a single post-submit action.",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "result"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		SessionEvictTotal,
		FormTransitionsTotal,
		SubmissionsTotal,
		ValidationErrorsTotal,
		SendDuration,
		ActionDuration,
	)
}
