// Package fuseprom exports breaker activity as Prometheus metrics.
package fuseprom

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/switchgear/fuse"
)

const namespace = "fuse"

var calls = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "calls_total",
	Help:      "Calls that went through the breaker, by the state that admitted them and success as interpreted by the breaker.",
}, []string{"name", "state", "success"})

var rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "rejections_total",
	Help:      "Calls rejected by the breaker without running.",
}, []string{"name"})

var transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "transitions_total",
	Help:      "Breaker state transitions.",
}, []string{"name", "from", "to"})

var state = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "state",
	Help:      "Current breaker state (0 closed, 1 open, 2 half-open, 3 stopped).",
}, []string{"name"})

var registerOnce sync.Once

func ensureRegistered() {
	registerOnce.Do(func() {
		prometheus.MustRegister(calls, rejections, transitions, state)
	})
}

// Instrument returns options that wire a breaker's hooks to the package
// collectors. The options occupy the OnCall, OnReject and OnStateChange
// slots, so they must come before any of the caller's own hook options.
func Instrument() []fuse.Option {
	ensureRegistered()

	return []fuse.Option{
		fuse.OnCall(func(name string, s fuse.State, err error) {
			calls.WithLabelValues(name, s.String(), strconv.FormatBool(err == nil)).Inc()
		}),
		fuse.OnReject(func(name string) {
			rejections.WithLabelValues(name).Inc()
		}),
		fuse.OnStateChange(func(name string, from, to fuse.State) {
			transitions.WithLabelValues(name, from.String(), to.String()).Inc()
			state.WithLabelValues(name).Set(float64(to))
		}),
	}
}

// Observe records b's current state in the state gauge. The gauge otherwise
// updates only on transitions, so call this once after construction.
func Observe(b *fuse.Breaker) {
	ensureRegistered()
	state.WithLabelValues(b.Name()).Set(float64(b.State()))
}
