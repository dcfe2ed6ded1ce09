// Package metrics keeps in-process counters for the chat client and renders
// them in Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the process-wide registry.
var Collector = NewMetricsCollector()

// MetricsCollector aggregates counters, gauges, and histograms.
type MetricsCollector struct {
	counters   sync.Map // name{labels} -> *Counter
	gauges     sync.Map
	histograms sync.Map
	startTime  time.Time
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (c *MetricsCollector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (c *Counter) Inc()         { c.value.Add(1) }
func (c *Counter) Add(n int64)  { c.value.Add(n) }
func (c *Counter) Value() int64 { return c.value.Load() }

// Gauge is a value that can go up and down.
type Gauge struct {
	name   string
	help   string
	labels string
	value  atomic.Int64
}

func (g *Gauge) Set(v int64)  { g.value.Store(v) }
func (g *Gauge) Inc()         { g.value.Add(1) }
func (g *Gauge) Dec()         { g.value.Add(-1) }
func (g *Gauge) Value() int64 { return g.value.Load() }

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	labels  string
	mu      sync.Mutex
	count   int64
	sum     float64
	buckets []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

// Observe records a value. Buckets are cumulative.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i := range h.buckets {
		if v <= h.buckets[i].le {
			h.buckets[i].count++
		}
	}
}

// Count returns the number of observations.
func (h *Histogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// ObserveSince records the seconds elapsed since start.
func (h *Histogram) ObserveSince(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Counter returns or creates a counter.
func (c *MetricsCollector) Counter(name, help, labels string) *Counter {
	key := name + "{" + labels + "}"
	if v, ok := c.counters.Load(key); ok {
		return v.(*Counter)
	}
	ctr := &Counter{name: name, help: help, labels: labels}
	actual, _ := c.counters.LoadOrStore(key, ctr)
	return actual.(*Counter)
}

// Gauge returns or creates a gauge.
func (c *MetricsCollector) Gauge(name, help, labels string) *Gauge {
	key := name + "{" + labels + "}"
	if v, ok := c.gauges.Load(key); ok {
		return v.(*Gauge)
	}
	g := &Gauge{name: name, help: help, labels: labels}
	actual, _ := c.gauges.LoadOrStore(key, g)
	return actual.(*Gauge)
}

// Histogram returns or creates a histogram with the given upper bounds.
func (c *MetricsCollector) Histogram(name, help, labels string, buckets []float64) *Histogram {
	key := name + "{" + labels + "}"
	if v, ok := c.histograms.Load(key); ok {
		return v.(*Histogram)
	}
	bounds := append([]float64(nil), buckets...)
	sort.Float64s(bounds)
	hb := make([]histBucket, len(bounds))
	for i, b := range bounds {
		hb[i] = histBucket{le: b}
	}
	h := &Histogram{name: name, help: help, labels: labels, buckets: hb}
	actual, _ := c.histograms.LoadOrStore(key, h)
	return actual.(*Histogram)
}

// sortedKeys returns the registry keys in order so output is stable.
func sortedKeys(m *sync.Map) []string {
	var keys []string
	m.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

func series(name, labels string) string {
	if labels == "" {
		return name
	}
	return name + "{" + labels + "}"
}

// Render writes every metric in Prometheus text format.
func (c *MetricsCollector) Render(w io.Writer) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP clawchat_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE clawchat_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "clawchat_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	helpWritten := make(map[string]bool)
	for _, key := range sortedKeys(&c.counters) {
		v, _ := c.counters.Load(key)
		ctr := v.(*Counter)
		if !helpWritten[ctr.name] {
			fmt.Fprintf(&sb, "# HELP %s %s\n", ctr.name, ctr.help)
			fmt.Fprintf(&sb, "# TYPE %s counter\n", ctr.name)
			helpWritten[ctr.name] = true
		}
		fmt.Fprintf(&sb, "%s %d\n", series(ctr.name, ctr.labels), ctr.Value())
	}

	helpWritten = make(map[string]bool)
	for _, key := range sortedKeys(&c.gauges) {
		v, _ := c.gauges.Load(key)
		g := v.(*Gauge)
		if !helpWritten[g.name] {
			fmt.Fprintf(&sb, "# HELP %s %s\n", g.name, g.help)
			fmt.Fprintf(&sb, "# TYPE %s gauge\n", g.name)
			helpWritten[g.name] = true
		}
		fmt.Fprintf(&sb, "%s %d\n", series(g.name, g.labels), g.Value())
	}

	for _, key := range sortedKeys(&c.histograms) {
		v, _ := c.histograms.Load(key)
		h := v.(*Histogram)
		h.mu.Lock()
		fmt.Fprintf(&sb, "# HELP %s %s\n", h.name, h.help)
		fmt.Fprintf(&sb, "# TYPE %s histogram\n", h.name)
		prefix := h.name + "_bucket{"
		if h.labels != "" {
			prefix += h.labels + ","
		}
		for _, b := range h.buckets {
			le := fmt.Sprintf("%g", b.le)
			if math.IsInf(b.le, 1) {
				le = "+Inf"
			}
			fmt.Fprintf(&sb, "%sle=\"%s\"} %d\n", prefix, le, b.count)
		}
		fmt.Fprintf(&sb, "%s %d\n", series(h.name+"_count", h.labels), h.count)
		fmt.Fprintf(&sb, "%s %f\n", series(h.name+"_sum", h.labels), h.sum)
		h.mu.Unlock()
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

var (
	ChatRequests  = Collector.Counter("clawchat_chat_requests_total", "Chat completions sent to the gateway", "")
	ChatErrors    = Collector.Counter("clawchat_chat_errors_total", "Chat completions that ended in an error", "")
	StreamDeltas  = Collector.Counter("clawchat_stream_deltas_total", "Streamed token and thinking deltas received", "")
	SessionSwaps  = Collector.Counter("clawchat_session_switches_total", "Session switches", "")
	ToastsShown   = Collector.Counter("clawchat_toasts_total", "Toasts shown", "")
	StreamsActive = Collector.Gauge("clawchat_streams_active", "Replies currently streaming", "")
	BusRetained   = Collector.Gauge("clawchat_bus_events_retained", "Store events kept for replay", "")

	ChatLatency = Collector.Histogram("clawchat_chat_latency_seconds", "Time from send to end of reply in seconds", "",
		[]float64{0.5, 1, 2, 5, 10, 30, 60, 120})
)
