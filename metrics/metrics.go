// Package metrics records how long each provisioning step took and how it
// ended. A run is short lived, so metrics are kept in a private registry and
// optionally pushed to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ixoworld/oracle-provisioner/common"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Recorder collects step metrics of one run. A nil Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	steps    *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: common.PackageName,
			Name:      "step_duration_seconds",
			Help:      "Duration of provisioning steps.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"step"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: common.PackageName,
			Name:      "steps_total",
			Help:      "Provisioning steps by outcome.",
		}, []string{"step", "outcome"}),
	}
	r.registry.MustRegister(r.duration, r.steps)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStep records a finished step that started at start.
func (r *Recorder) ObserveStep(step string, start time.Time, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	r.duration.WithLabelValues(step).Observe(time.Since(start).Seconds())
	r.steps.WithLabelValues(step, outcome).Inc()
}

// SkipStep records a step that a resumed run did not need to repeat.
func (r *Recorder) SkipStep(step string) {
	if r == nil {
		return
	}
	r.steps.WithLabelValues(step, OutcomeSkipped).Inc()
}

// Push sends every collected metric to the Pushgateway at url, grouped by
// job and network.
func (r *Recorder) Push(ctx context.Context, url, job, network string) error {
	if r == nil {
		return errors.New("no metrics recorder")
	}
	pusher := push.New(url, job).
		Gatherer(r.registry).
		Grouping("network", network)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("could not push metrics to %s: %w", url, err)
	}
	return nil
}
