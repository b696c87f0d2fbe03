// Copyright 2025 Tomas Cupr
//
// Metrics registry for observability

package transport

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// MetricsRegistry is a thread-safe in-memory metrics store for the MCP
// server. It tracks tool-call counts, latencies, and SSE connection state,
// and can render itself in Prometheus text format.
type MetricsRegistry struct {
	counters   map[string]*counter
	histograms map[string]*histogram
	gauges     map[string]*gauge
	mu         sync.RWMutex
}

// counter is a monotonically increasing counter keyed by label combination.
type counter struct {
	values map[string]uint64
	mu     sync.RWMutex
}

// histogram is a distribution of values over fixed bucket bounds.
type histogram struct {
	counts  map[string][]uint64 // label combo -> per-bucket counts
	sums    map[string]float64
	totals  map[string]uint64
	buckets []float64 // upper bounds
	mu      sync.RWMutex
}

// gauge is a value that can go up or down.
type gauge struct {
	values map[string]float64
	mu     sync.RWMutex
}

// Latency buckets in seconds. Tool calls routinely take over a second
// because of the post-action screenshot, so the tail stretches to 10s.
var defaultLatencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

// NewMetricsRegistry creates a registry with the standard server metrics
// pre-registered.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
		gauges:     make(map[string]*gauge),
	}

	m.registerCounter("computer_use_tool_calls_total")
	m.registerCounter("computer_use_sse_events_sent_total")
	m.registerHistogram("computer_use_tool_duration_seconds", defaultLatencyBuckets)
	m.registerGauge("computer_use_sse_connections_active")

	return m
}

func (m *MetricsRegistry) registerCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = &counter{values: make(map[string]uint64)}
}

func (m *MetricsRegistry) registerHistogram(name string, buckets []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = &histogram{
		buckets: buckets,
		counts:  make(map[string][]uint64),
		sums:    make(map[string]float64),
		totals:  make(map[string]uint64),
	}
}

func (m *MetricsRegistry) registerGauge(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = &gauge{values: make(map[string]float64)}
}

// IncrementCounter increments a counter by 1 for the given label
// combination. Labels are formatted as: key1="value1",key2="value2"
func (m *MetricsRegistry) IncrementCounter(name string, labels string) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	c.values[labels]++
	c.mu.Unlock()
}

// ObserveHistogram records a value in a histogram.
func (m *MetricsRegistry) ObserveHistogram(name string, labels string, value float64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.counts[labels]; !exists {
		h.counts[labels] = make([]uint64, len(h.buckets)+1) // +1 for +Inf
	}

	h.sums[labels] += value
	h.totals[labels]++

	// counts holds per-bucket increments; write accumulates them into the
	// cumulative series Prometheus expects. The final slot is +Inf.
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[labels][i]++
			return
		}
	}
	h.counts[labels][len(h.buckets)]++
}

// SetGauge sets a gauge to a specific value.
func (m *MetricsRegistry) SetGauge(name string, labels string, value float64) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	g.mu.Lock()
	g.values[labels] = value
	g.mu.Unlock()
}

// IncrementGauge adds delta to a gauge.
func (m *MetricsRegistry) IncrementGauge(name string, labels string, delta float64) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	g.mu.Lock()
	g.values[labels] += delta
	g.mu.Unlock()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeSample(w io.Writer, name, labels string, format string, value any) error {
	if labels == "" {
		_, err := fmt.Fprintf(w, "%s "+format+"\n", name, value)
		return err
	}
	_, err := fmt.Fprintf(w, "%s{%s} "+format+"\n", name, labels, value)
	return err
}

// WritePrometheus writes all metrics in Prometheus text format.
func (m *MetricsRegistry) WritePrometheus(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range sortedKeys(m.counters) {
		c := m.counters[name]
		c.mu.RLock()
		if _, err := fmt.Fprintf(w, "# TYPE %s counter\n", name); err != nil {
			c.mu.RUnlock()
			return err
		}
		for _, l := range sortedKeys(c.values) {
			if err := writeSample(w, name, l, "%d", c.values[l]); err != nil {
				c.mu.RUnlock()
				return err
			}
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.gauges) {
		g := m.gauges[name]
		g.mu.RLock()
		if _, err := fmt.Fprintf(w, "# TYPE %s gauge\n", name); err != nil {
			g.mu.RUnlock()
			return err
		}
		for _, l := range sortedKeys(g.values) {
			if err := writeSample(w, name, l, "%g", g.values[l]); err != nil {
				g.mu.RUnlock()
				return err
			}
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.histograms) {
		h := m.histograms[name]
		h.mu.RLock()
		if err := h.write(w, name); err != nil {
			h.mu.RUnlock()
			return err
		}
		h.mu.RUnlock()
	}

	return nil
}

// write renders a histogram; caller holds h.mu.
func (h *histogram) write(w io.Writer, name string) error {
	if _, err := fmt.Fprintf(w, "# TYPE %s histogram\n", name); err != nil {
		return err
	}
	for _, l := range sortedKeys(h.counts) {
		counts := h.counts[l]

		labelPrefix := ""
		if l != "" {
			labelPrefix = l + ","
		}

		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += counts[i]
			if _, err := fmt.Fprintf(w, "%s_bucket{%sle=\"%g\"} %d\n", name, labelPrefix, bound, cumulative); err != nil {
				return err
			}
		}
		cumulative += counts[len(h.buckets)]
		if _, err := fmt.Fprintf(w, "%s_bucket{%sle=\"+Inf\"} %d\n", name, labelPrefix, cumulative); err != nil {
			return err
		}

		if err := writeSample(w, name+"_sum", l, "%g", h.sums[l]); err != nil {
			return err
		}
		if err := writeSample(w, name+"_count", l, "%d", h.totals[l]); err != nil {
			return err
		}
	}
	return nil
}

// RecordToolCall records a tool invocation with count and latency metrics.
// This is the main instrumentation entry point for the MCP server.
func (m *MetricsRegistry) RecordToolCall(tool string, status string, duration time.Duration) {
	labels := fmt.Sprintf(`tool="%s",status="%s"`, tool, status)
	m.IncrementCounter("computer_use_tool_calls_total", labels)

	toolLabels := fmt.Sprintf(`tool="%s"`, tool)
	m.ObserveHistogram("computer_use_tool_duration_seconds", toolLabels, duration.Seconds())
}

// RecordSSEEvent records an SSE event being sent.
func (m *MetricsRegistry) RecordSSEEvent() {
	m.IncrementCounter("computer_use_sse_events_sent_total", "")
}

// SetSSEConnections sets the current number of active SSE connections.
func (m *MetricsRegistry) SetSSEConnections(count int) {
	m.SetGauge("computer_use_sse_connections_active", "", float64(count))
}

var defaultMetrics = NewMetricsRegistry()

// DefaultMetrics returns the process-wide metrics registry.
func DefaultMetrics() *MetricsRegistry {
	return defaultMetrics
}
