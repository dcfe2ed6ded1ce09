package metrics

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestCounterAndGauge(t *testing.T) {
	c := NewMetricsCollector()
	ctr := c.Counter("x_total", "x", "")
	ctr.Inc()
	ctr.Add(4)
	if got := c.Counter("x_total", "ignored", "").Value(); got != 5 {
		t.Errorf("counter = %d, want 5", got)
	}

	g := c.Gauge("busy", "busy", "")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Errorf("gauge = %d, want 1", g.Value())
	}
	g.Set(7)
	if g.Value() != 7 {
		t.Errorf("gauge = %d, want 7", g.Value())
	}
}

func TestHistogramBucketsAreCumulative(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("lat", "latency", "", []float64{5, 1, math.Inf(1)})
	h.Observe(0.5)
	h.Observe(3)
	h.Observe(100)
	if h.Count() != 3 {
		t.Fatalf("count = %d, want 3", h.Count())
	}

	var sb strings.Builder
	if err := c.Render(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, want := range []string{
		`lat_bucket{le="1"} 1`,
		`lat_bucket{le="5"} 2`,
		`lat_bucket{le="+Inf"} 3`,
		"lat_count 3",
		"# TYPE lat histogram",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderLabelsAndOrder(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("req_total", "requests", `code="500"`).Inc()
	c.Counter("req_total", "requests", `code="200"`).Add(2)
	c.Gauge("up", "up", "").Set(1)

	var sb strings.Builder
	if err := c.Render(&sb); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	if strings.Count(out, "# HELP req_total") != 1 {
		t.Errorf("help written more than once:\n%s", out)
	}
	i200 := strings.Index(out, `req_total{code="200"} 2`)
	i500 := strings.Index(out, `req_total{code="500"} 1`)
	if i200 < 0 || i500 < 0 || i200 > i500 {
		t.Errorf("labelled series missing or unordered:\n%s", out)
	}
	if !strings.Contains(out, "up 1\n") || !strings.Contains(out, "clawchat_uptime_seconds") {
		t.Errorf("gauge or uptime missing:\n%s", out)
	}
}

func TestObserveSince(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("d", "d", "", []float64{60})
	h.ObserveSince(time.Now().Add(-time.Second))
	if h.Count() != 1 {
		t.Errorf("count = %d, want 1", h.Count())
	}
}
