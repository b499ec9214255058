package observability

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Prometheus text exposition for the handful of metric kinds the service
// needs. Series are emitted in sorted label order so scrapes diff cleanly.

// family is a named set of series keyed by their rendered label string.
type family[S any] struct {
	name, help, kind string
	labels           []string

	mu     sync.RWMutex
	series map[string]S
}

func newFamily[S any](name, help, kind string, labels []string) *family[S] {
	return &family[S]{name: name, help: help, kind: kind, labels: labels, series: map[string]S{}}
}

// update runs fn on the series for values under the write lock.
func (f *family[S]) update(values []string, fn func(*S)) {
	key := labelString(f.labels, values)
	f.mu.Lock()
	s := f.series[key]
	fn(&s)
	f.series[key] = s
	f.mu.Unlock()
}

func (f *family[S]) get(values []string) S {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.series[labelString(f.labels, values)]
}

// write emits the header and one block per series via line.
func (f *family[S]) write(w io.Writer, line func(w io.Writer, labels string, s S) error) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind); err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := line(w, k, f.series[k]); err != nil {
			return err
		}
	}
	return nil
}

type CounterVec struct{ f *family[float64] }

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{f: newFamily[float64](name, help, "counter", labels)}
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

func (c *CounterVec) Add(v float64, values ...string) {
	if c != nil {
		c.f.update(values, func(s *float64) { *s += v })
	}
}

func (c *CounterVec) Value(values ...string) float64 {
	if c == nil {
		return 0
	}
	return c.f.get(values)
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	return c.f.write(w, func(w io.Writer, labels string, v float64) error {
		_, err := fmt.Fprintf(w, "%s%s %f\n", c.f.name, labels, v)
		return err
	})
}

// Gauge is an unlabelled gauge.
type Gauge struct{ f *family[float64] }

func NewGauge(name, help string) *Gauge {
	return &Gauge{f: newFamily[float64](name, help, "gauge", nil)}
}

func (g *Gauge) Set(v float64) {
	if g != nil {
		g.f.update(nil, func(s *float64) { *s = v })
	}
}

func (g *Gauge) Add(v float64) {
	if g != nil {
		g.f.update(nil, func(s *float64) { *s += v })
	}
}

func (g *Gauge) Value() float64 {
	if g == nil {
		return 0
	}
	return g.f.get(nil)
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n", g.f.name, g.f.help, g.f.name); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s %f\n", g.f.name, g.Value())
	return err
}

var defaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

type HistogramVec struct {
	f       *family[histogram]
	buckets []float64
}

// histogram keeps per-bucket (non-cumulative) hits; write accumulates.
type histogram struct {
	hits  []uint64
	sum   float64
	count uint64
}

func NewHistogramVec(name, help string, labels []string, buckets []float64) *HistogramVec {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	return &HistogramVec{f: newFamily[histogram](name, help, "histogram", labels), buckets: buckets}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	if h == nil {
		return
	}
	idx := sort.SearchFloat64s(h.buckets, v)
	h.f.update(values, func(s *histogram) {
		if s.hits == nil {
			s.hits = make([]uint64, len(h.buckets))
		}
		if idx < len(s.hits) {
			s.hits[idx]++
		}
		s.sum += v
		s.count++
	})
}

func (h *HistogramVec) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	return h.f.write(w, func(w io.Writer, labels string, s histogram) error {
		var cum uint64
		for i, b := range h.buckets {
			cum += s.hits[i]
			le := strconv.FormatFloat(b, 'g', -1, 64)
			if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", h.f.name, withLe(labels, le), cum); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s_bucket%s %d\n%s_sum%s %f\n%s_count%s %d\n",
			h.f.name, withLe(labels, "+Inf"), s.count,
			h.f.name, labels, s.sum,
			h.f.name, labels, s.count)
		return err
	})
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// labelString renders {name="value",...}; missing or empty values become
// "unknown".
func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	pairs := make([]string, len(names))
	for i, name := range names {
		val := "unknown"
		if i < len(values) && values[i] != "" {
			val = values[i]
		}
		pairs[i] = name + `="` + labelEscaper.Replace(val) + `"`
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

func withLe(labels, le string) string {
	pair := `le="` + labelEscaper.Replace(le) + `"`
	if !strings.HasSuffix(labels, "}") || labels == "{}" {
		return "{" + pair + "}"
	}
	return strings.TrimSuffix(labels, "}") + "," + pair + "}"
}
