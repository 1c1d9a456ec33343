package estimation

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the Prometheus metrics of the state manager and its publishers.
// A nil *Collector is valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	PublishCycles      prometheus.Counter
	SkippedElements    prometheus.Counter
	CapacityViolations prometheus.Counter
	StateVectorSize    prometheus.Gauge
	RotationRecomputes prometheus.Gauge
}

// NewCollector registers the estimation metrics against the provided registerer, defaulting to
// the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	cycles, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "estimation_publish_cycles_total",
		Help: "Number of state data publications.",
	}), "estimation_publish_cycles_total")
	if err != nil {
		return nil, err
	}
	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "estimation_publish_skipped_elements_total",
		Help: "State elements whose name was not in the published name list.",
	}), "estimation_publish_skipped_elements_total")
	if err != nil {
		return nil, err
	}
	violations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "estimation_capacity_violations_total",
		Help: "Publications aborted because the output buffer was too small.",
	}), "estimation_capacity_violations_total")
	if err != nil {
		return nil, err
	}
	size, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "estimation_state_vector_size",
		Help: "Length of the last built estimation state vector.",
	}), "estimation_state_vector_size")
	if err != nil {
		return nil, err
	}
	recomputes, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "axes_rotation_recomputations",
		Help: "Number of precession and nutation recomputations of the frame rotation.",
	}), "axes_rotation_recomputations")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:           gatherer,
		PublishCycles:      cycles,
		SkippedElements:    skipped,
		CapacityViolations: violations,
		StateVectorSize:    size,
		RotationRecomputes: recomputes,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) publishCycle(skipped int) {
	if c == nil {
		return
	}
	c.PublishCycles.Inc()
	c.SkippedElements.Add(float64(skipped))
}

func (c *Collector) capacityViolation() {
	if c == nil {
		return
	}
	c.CapacityViolations.Inc()
}

func (c *Collector) stateSize(n int) {
	if c == nil {
		return
	}
	c.StateVectorSize.Set(float64(n))
}

// SetRotationRecomputes records the recomputation count reported by a set of dynamic axes.
func (c *Collector) SetRotationRecomputes(n uint64) {
	if c == nil {
		return
	}
	c.RotationRecomputes.Set(float64(n))
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
