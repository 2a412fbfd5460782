package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// autoRegisterer lazily creates and registers a Prometheus collector
// the first time a given stat name is referenced, and returns the
// cached collector on every later call. Scope's Inc/Gauge/Timing
// methods are called with plain strings at arbitrary call sites
// throughout the engine; requiring each call site to pre-declare its
// collector would defeat the point of the Scope abstraction.
type autoRegisterer struct {
	registerer prometheus.Registerer

	mu        sync.Mutex
	counters  map[string]prometheus.Counter
	gauges    map[string]prometheus.Gauge
	summaries map[string]prometheus.Summary
}

func newAutoRegisterer(registerer prometheus.Registerer) *autoRegisterer {
	return &autoRegisterer{
		registerer: registerer,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		summaries:  make(map[string]prometheus.Summary),
	}
}

func (a *autoRegisterer) autoCounter(name string) prometheus.Counter {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: sanitizeMetricName(name), Help: name})
	a.registerer.MustRegister(c)
	a.counters[name] = c
	return c
}

func (a *autoRegisterer) autoGauge(name string) prometheus.Gauge {
	a.mu.Lock()
	defer a.mu.Unlock()
	if g, ok := a.gauges[name]; ok {
		return g
	}
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: sanitizeMetricName(name), Help: name})
	a.registerer.MustRegister(g)
	a.gauges[name] = g
	return g
}

func (a *autoRegisterer) autoSummary(name string) prometheus.Summary {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.summaries[name]; ok {
		return s
	}
	s := prometheus.NewSummary(prometheus.SummaryOpts{Name: sanitizeMetricName(name), Help: name})
	a.registerer.MustRegister(s)
	a.summaries[name] = s
	return s
}

// sanitizeMetricName replaces the dotted-scope separators Scope uses
// with underscores: Prometheus metric names may not contain '.'.
func sanitizeMetricName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == '.' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
