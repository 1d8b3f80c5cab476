package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invocation outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeMock    = "mock"
	OutcomeFailure = "failure"
)

// Collector captures telemetry events emitted by the runtime.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with every data source invocation.
type Collector interface {
	IncHotReload(file string)
	ObserveInvocation(source, cadence, outcome string)
	IncSkippedTick(cadence string)
	SetHealth(active, live int)
	ObserveFullPass(duration time.Duration)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncHotReload(string)                     {}
func (noopCollector) ObserveInvocation(string, string, string) {}
func (noopCollector) IncSkippedTick(string)                   {}
func (noopCollector) SetHealth(int, int)                      {}
func (noopCollector) ObserveFullPass(time.Duration)           {}

// PrometheusCollector exposes telemetry counters via Prometheus.
type PrometheusCollector struct {
	hotReloads   *prometheus.CounterVec
	invocations  *prometheus.CounterVec
	skippedTicks *prometheus.CounterVec
	activeSource prometheus.Gauge
	liveSource   prometheus.Gauge
	fullPass     prometheus.Histogram
}

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Metrics that are already registered are reused, so building a
// second collector after a hot reload keeps counting into the same series.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collector := &PrometheusCollector{}
	var err error

	if collector.hotReloads, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "colint_config_hot_reload_total",
		Help: "Number of hot reload operations triggered per configuration source file.",
	}, []string{"file"})); err != nil {
		return nil, err
	}
	if collector.invocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "colint_source_invocations_total",
		Help: "Number of data source invocations by source, cadence and outcome.",
	}, []string{"source", "cadence", "outcome"})); err != nil {
		return nil, err
	}
	if collector.skippedTicks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "colint_scheduler_skipped_ticks_total",
		Help: "Timer ticks skipped because the previous invocation of the same cadence was still running.",
	}, []string{"cadence"})); err != nil {
		return nil, err
	}
	if collector.activeSource, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "colint_active_sources",
		Help: "Sources that reported success during the last full refresh pass, mock fallbacks included.",
	})); err != nil {
		return nil, err
	}
	if collector.liveSource, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "colint_live_sources",
		Help: "Sources that delivered real upstream data during the last full refresh pass.",
	})); err != nil {
		return nil, err
	}
	if collector.fullPass, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "colint_full_pass_duration_seconds",
		Help:    "Wall time between the start of a full refresh pass and the settlement of its last source.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
	})); err != nil {
		return nil, err
	}
	return collector, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, metric T) (T, error) {
	if err := reg.Register(metric); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return metric, nil
}

// IncHotReload increments the counter for the provided file path.
func (p *PrometheusCollector) IncHotReload(file string) {
	if p == nil || p.hotReloads == nil {
		return
	}
	p.hotReloads.WithLabelValues(file).Inc()
}

// ObserveInvocation counts one settled data source invocation.
func (p *PrometheusCollector) ObserveInvocation(source, cadence, outcome string) {
	if p == nil || p.invocations == nil {
		return
	}
	p.invocations.WithLabelValues(source, cadence, outcome).Inc()
}

// IncSkippedTick counts a timer tick dropped by the overlap guard.
func (p *PrometheusCollector) IncSkippedTick(cadence string) {
	if p == nil || p.skippedTicks == nil {
		return
	}
	p.skippedTicks.WithLabelValues(cadence).Inc()
}

// SetHealth publishes the tallies of the last full pass.
func (p *PrometheusCollector) SetHealth(active, live int) {
	if p == nil || p.activeSource == nil || p.liveSource == nil {
		return
	}
	p.activeSource.Set(float64(active))
	p.liveSource.Set(float64(live))
}

// ObserveFullPass records the duration of a full refresh pass.
func (p *PrometheusCollector) ObserveFullPass(duration time.Duration) {
	if p == nil || p.fullPass == nil {
		return
	}
	p.fullPass.Observe(duration.Seconds())
}
