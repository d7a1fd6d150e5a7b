package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the runner-level counters exposed on /metrics.
type Metrics struct {
	TicksTotal     *prometheus.CounterVec
	TickErrors     *prometheus.CounterVec
	ItemsProcessed *prometheus.CounterVec
	ServicesUp     *prometheus.GaugeVec
}

// NewMetrics registers the runner collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		TicksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsloom",
			Name:      "service_ticks_total",
			Help:      "Completed ticks per scheduled service.",
		}, []string{"service"}),
		TickErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsloom",
			Name:      "service_tick_errors_total",
			Help:      "Failed ticks per scheduled service.",
		}, []string{"service"}),
		ItemsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "newsloom",
			Name:      "items_processed_total",
			Help:      "Items handled per scheduled service.",
		}, []string{"service"}),
		ServicesUp: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "newsloom",
			Name:      "service_up",
			Help:      "1 while the named service is running.",
		}, []string{"service"}),
	}
}
