package pipeline

import (
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

var (
	stepDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "nwp",
		Subsystem: "pipeline",
		Name:      "step_duration_seconds",
		Help:      "Duration of pipeline steps, in seconds.",
		Buckets:   stdprometheus.ExponentialBuckets(0.1, 3, 10),
	}, []string{"operation", "step", "outcome"})

	runDuration = prometheus.NewHistogramFrom(stdprometheus.HistogramOpts{
		Namespace: "nwp",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Duration of pipeline runs, in seconds.",
		Buckets:   stdprometheus.ExponentialBuckets(1, 3, 8),
	}, []string{"operation", "status"})
)
