// Package metrics implements the process-wide metric counter registry
// described in spec.md §3: a map from event name to a running total and a
// bounded rolling sample window, exposed both as Prometheus counters/gauges
// and through the legacy /stats.json endpoint the original softlayer/swftp
// gateway exposed.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultWindowSize is the rolling sample window length used to compute
// "rates" in the /stats.json response, matching the original's
// default of 10 samples taken at 1 Hz.
const defaultWindowSize = 10

// Registry is a process-wide counter/gauge registry. One Registry is
// created per daemon process and threaded explicitly into every component
// that emits an event, per the "global mutable state -> process-scope
// struct owned by the server, passed explicitly" design note.
type Registry struct {
	mu       sync.Mutex
	totals   map[string]int64
	windows  map[string]*rollingWindow
	counters *prometheus.CounterVec
	gauges   *prometheus.GaugeVec
}

// NewRegistry constructs a Registry and registers its Prometheus
// collectors. Pass a *prometheus.Registry (or prometheus.DefaultRegisterer)
// for reg; nil uses the default global registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	counters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swftpgo",
		Name:      "events_total",
		Help:      "Running total for each named gateway event.",
	}, []string{"name"})

	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "swftpgo",
		Name:      "gauge",
		Help:      "Current value for each named gateway gauge.",
	}, []string{"name"})

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	reg.MustRegister(counters, gauges)

	return &Registry{
		totals:   make(map[string]int64),
		windows:  make(map[string]*rollingWindow),
		counters: counters,
		gauges:   gauges,
	}
}

// Incr bumps the named counter by one. Use dotted event names matching the
// original's convention: "auth.succeed", "auth.fail", "command.<verb>",
// "transfer.ingress_bytes", "transfer.egress_bytes".
func (r *Registry) Incr(name string) {
	r.Add(name, 1)
}

// Add bumps the named counter by delta (delta may be a byte count for the
// transfer.* events).
func (r *Registry) Add(name string, delta int64) {
	r.mu.Lock()
	r.totals[name] += delta
	w := r.window(name)
	r.mu.Unlock()

	w.record(delta)
	r.counters.WithLabelValues(name).Add(float64(delta))
}

// SetGauge sets the named gauge to value (e.g. "num_clients").
func (r *Registry) SetGauge(name string, value float64) {
	r.gauges.WithLabelValues(name).Set(value)
}

// window returns (creating if necessary) the rolling window for name. Must
// be called with r.mu held.
func (r *Registry) window(name string) *rollingWindow {
	w, ok := r.windows[name]
	if !ok {
		w = newRollingWindow(defaultWindowSize)
		r.windows[name] = w
	}

	return w
}

// Snapshot is the /stats.json wire shape: totals are the monotonically
// increasing counters, rates are the rolling-window per-second averages.
type Snapshot struct {
	Totals map[string]int64   `json:"totals"`
	Rates  map[string]float64 `json:"rates"`
}

// Snapshot returns the current totals and rates for every named event seen
// so far.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Totals: make(map[string]int64, len(r.totals)),
		Rates:  make(map[string]float64, len(r.windows)),
	}

	for name, total := range r.totals {
		snap.Totals[name] = total
	}

	for name, w := range r.windows {
		snap.Rates[name] = w.rate()
	}

	return snap
}

// rollingWindow holds the last N per-tick deltas for a single event and
// computes their average as a rate-per-tick.
type rollingWindow struct {
	mu      sync.Mutex
	samples []int64
	size    int
	next    int
	filled  bool
	started time.Time
}

func newRollingWindow(size int) *rollingWindow {
	return &rollingWindow{samples: make([]int64, size), size: size, started: time.Time{}}
}

func (w *rollingWindow) record(delta int64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.samples[w.next] = w.samples[w.next] + delta
	// Each call records into the current tick's bucket; tick rotation is
	// driven externally by rotate (called from sampler.go) so bursts within one
	// sampling interval accumulate into a single sample.
}

func (w *rollingWindow) rotate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.next = (w.next + 1) % w.size
	w.samples[w.next] = 0

	if w.next == 0 {
		w.filled = true
	}
}

func (w *rollingWindow) rate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.size
	if !w.filled {
		n = w.next + 1
	}

	if n == 0 {
		return 0
	}

	var sum int64
	for i := 0; i < n; i++ {
		sum += w.samples[i]
	}

	return float64(sum) / float64(n)
}
