package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_received_total",
		Help: "Total number of gateway notifications received",
	})

	NotificationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_rejected_total",
		Help: "Total number of rejected gateway notifications",
	}, []string{"reason"})

	SignatureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signature_failures_total",
		Help: "Total number of notifications with an invalid signature",
	})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of payment rows recorded",
	}, []string{"status"})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Total number of orders advanced to PAID and CONFIRMED",
	})

	ReconcileLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_latency_seconds",
		Help:    "Latency of notification reconciliation",
		Buckets: prometheus.DefBuckets,
	})

	LockContentionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_lock_contention_total",
		Help: "Times the per-order advisory lock was already held",
	})

	AuditEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_events_total",
		Help: "Total number of audit events consumed",
	}, []string{"type"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
