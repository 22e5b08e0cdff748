// Package metrics keeps in-process counters for the live page and serves
// them in the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Namespace prefixes every exported metric name.
const Namespace = "cardgrid"

// Metrics holds the server's metrics.
type Metrics struct {
	// Sessions
	SessionsActive   *Gauge
	SessionsTotal    *Counter
	SessionsRejected *CounterVec

	// Events by name, and the ones the component refused.
	Events      *CounterVec
	EventErrors *CounterVec

	// Content loads
	Loads        *Counter
	LoadFailures *Counter
	LoadDuration *Histogram

	// Renders
	Renders        *Counter
	RenderDuration *Histogram
	PageSize       *Histogram

	Panics *Counter
}

// New creates an empty set of metrics.
func New() *Metrics {
	return &Metrics{
		SessionsActive:   NewGauge("sessions_active", "Live sessions currently connected"),
		SessionsTotal:    NewCounter("sessions_total", "Live sessions accepted"),
		SessionsRejected: NewCounterVec("sessions_rejected_total", "Live sessions refused", "reason"),

		Events:      NewCounterVec("events_total", "Client events received", "event"),
		EventErrors: NewCounterVec("event_errors_total", "Client events rejected", "event"),

		Loads:        NewCounter("loads_total", "Content loads attempted"),
		LoadFailures: NewCounter("load_failures_total", "Content loads that failed"),
		LoadDuration: NewHistogram("load_duration_seconds", "Content load duration"),

		Renders:        NewCounter("renders_total", "Pages rendered"),
		RenderDuration: NewHistogram("render_duration_seconds", "Page render duration"),
		PageSize:       NewHistogram("page_size_bytes", "Rendered page size"),

		Panics: NewCounter("panics_total", "Panics recovered in components"),
	}
}

// ObserveLoad records one content load.
func (m *Metrics) ObserveLoad(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Loads.Inc()
	if err != nil {
		m.LoadFailures.Inc()
	}
	m.LoadDuration.ObserveDuration(d)
}

// ObserveRender records one rendered page of size bytes.
func (m *Metrics) ObserveRender(d time.Duration, size int) {
	if m == nil {
		return
	}
	m.Renders.Inc()
	m.RenderDuration.ObserveDuration(d)
	m.PageSize.Observe(float64(size))
}

// Handler serves the metrics as text.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.WriteTo(w)
	})
}

// WriteTo writes every metric to w.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	for _, c := range []*Counter{m.SessionsTotal, m.Loads, m.LoadFailures, m.Renders, m.Panics} {
		writeHeader(cw, c.name, c.help, "counter")
		fmt.Fprintf(cw, "%s_%s %g\n", Namespace, c.name, c.Value())
	}

	writeHeader(cw, m.SessionsActive.name, m.SessionsActive.help, "gauge")
	fmt.Fprintf(cw, "%s_%s %g\n", Namespace, m.SessionsActive.name, m.SessionsActive.Value())

	for _, cv := range []*CounterVec{m.SessionsRejected, m.Events, m.EventErrors} {
		writeHeader(cw, cv.name, cv.help, "counter")
		values := cv.Values()
		labels := make([]string, 0, len(values))
		for l := range values {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Fprintf(cw, "%s_%s{%s=%q} %g\n", Namespace, cv.name, cv.label, l, values[l])
		}
	}

	for _, h := range []*Histogram{m.LoadDuration, m.RenderDuration, m.PageSize} {
		writeHeader(cw, h.name, h.help, "summary")
		stats := h.Stats()
		fmt.Fprintf(cw, "%s_%s_sum %g\n", Namespace, h.name, stats.Sum)
		fmt.Fprintf(cw, "%s_%s_count %d\n", Namespace, h.name, stats.Count)
	}

	return cw.n, cw.err
}

func writeHeader(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", Namespace, name, help)
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", Namespace, name, kind)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name  string
	help  string
	value atomic.Int64
}

// NewCounter creates a new counter.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.value.Add(1)
}

// Value returns the current counter value.
func (c *Counter) Value() float64 {
	return float64(c.value.Load())
}

// Gauge is a value that can go up and down.
type Gauge struct {
	name  string
	help  string
	value atomic.Int64
}

// NewGauge creates a new gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Inc() { g.value.Add(1) }

func (g *Gauge) Dec() { g.value.Add(-1) }

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	return float64(g.value.Load())
}

// CounterVec is a counter split by one label.
type CounterVec struct {
	name   string
	help   string
	label  string
	values map[string]*Counter
	mu     sync.RWMutex
}

// NewCounterVec creates a new counter vector.
func NewCounterVec(name, help, label string) *CounterVec {
	return &CounterVec{
		name:   name,
		help:   help,
		label:  label,
		values: make(map[string]*Counter),
	}
}

// WithLabel returns the counter for a label value.
func (cv *CounterVec) WithLabel(value string) *Counter {
	cv.mu.RLock()
	c, ok := cv.values[value]
	cv.mu.RUnlock()
	if ok {
		return c
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	if c, ok := cv.values[value]; ok {
		return c
	}
	c = NewCounter(cv.name, cv.help)
	cv.values[value] = c
	return c
}

// Inc increments the counter for a label value.
func (cv *CounterVec) Inc(value string) {
	cv.WithLabel(value).Inc()
}

// Values returns every counter by label value.
func (cv *CounterVec) Values() map[string]float64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()

	result := make(map[string]float64, len(cv.values))
	for label, counter := range cv.values {
		result[label] = counter.Value()
	}
	return result
}

// Histogram tracks the count and sum of observations.
type Histogram struct {
	name  string
	help  string
	sum   float64
	count int64
	min   float64
	max   float64
	mu    sync.Mutex
}

// NewHistogram creates a new histogram.
func NewHistogram(name, help string) *Histogram {
	return &Histogram{name: name, help: help, min: -1}
}

// Observe records a value.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++
	if h.min < 0 || value < h.min {
		h.min = value
	}
	if value > h.max {
		h.max = value
	}
}

// ObserveDuration records a duration in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

// Stats returns histogram statistics.
func (h *Histogram) Stats() HistogramStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := HistogramStats{
		Count: h.count,
		Sum:   h.sum,
		Min:   h.min,
		Max:   h.max,
	}
	if h.count > 0 {
		stats.Avg = h.sum / float64(h.count)
	}
	return stats
}

// HistogramStats contains histogram statistics.
type HistogramStats struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64
}
