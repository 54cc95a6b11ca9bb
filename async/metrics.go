/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package async

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	queueDepth     prometheus.Gauge
	submitted      prometheus.Counter
	rejected       prometheus.Counter
	processed      prometheus.Counter
	failed         prometheus.Counter
	processingTime *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer, prefix string) *metrics {
	return &metrics{
		queueDepth: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_queue_depth",
			Help: "Current storage task queue depth",
		})),
		submitted: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_submitted_total",
			Help: "Total storage tasks submitted",
		})),
		rejected: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_rejected_total",
			Help: "Total storage tasks refused because the queue was full",
		})),
		processed: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_processed_total",
			Help: "Total storage tasks processed",
		})),
		failed: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_failed_total",
			Help: "Total storage tasks that returned an error or panicked",
		})),
		processingTime: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_processing_duration_seconds",
			Help:    "Time spent running storage tasks",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"status"})),
	}
}

// register adds c to reg, reusing the collector already registered under the
// same name so several pools can share a prefix.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
