package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder exposes creation counts and phase durations.
type PrometheusRecorder struct {
	creations     *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
}

// NewPrometheusRecorder registers its collectors on registerer (the default one when nil).
// Registering twice reuses the existing collectors.
func NewPrometheusRecorder(registerer prometheus.Registerer) *PrometheusRecorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &PrometheusRecorder{
		creations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "bookorders_order_creations_total",
			Help: "Total number of order creation attempts by category and outcome",
		}, []string{"category", "outcome"}),
		phaseDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "bookorders_order_creation_phase_seconds",
			Help:    "Duration of order creation phases in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"phase", "outcome"}),
	}
}

func (p *PrometheusRecorder) RecordOrderCreation(_ context.Context, r Record) {
	outcome := r.Outcome()
	p.creations.WithLabelValues(labelOrUnknown(r.Category), outcome).Inc()
	p.phaseDuration.WithLabelValues("validation", outcome).Observe(r.ValidationDuration.Seconds())
	p.phaseDuration.WithLabelValues("database", outcome).Observe(r.DatabaseDuration.Seconds())
	p.phaseDuration.WithLabelValues("total", outcome).Observe(r.TotalDuration.Seconds())
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
