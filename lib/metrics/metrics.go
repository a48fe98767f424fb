// Package metrics exports applier events as Prometheus metrics.
//
//	m := metrics.New()
//	prometheus.MustRegister(m)
//	applier := fract.NewApplier[*html.Node](doc, fract.WithObserver(m))
package metrics

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/pthm/fract"
)

// Namespace prefixes every metric name.
const Namespace = "fract"

// Observer counts applier events and times whole applications.
// It implements both fract.Observer and prometheus.Collector.
type Observer struct {
	events   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates an unregistered observer.
func New() *Observer {
	return &Observer{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "events_total",
				Help:      "Envelope application events by kind and mutation method.",
			},
			[]string{"kind", "method"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "apply_duration_seconds",
				Help:      "Time spent applying one envelope.",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"result"},
		),
	}
}

// Observe implements fract.Observer.
func (o *Observer) Observe(e fract.Event) {
	if e.Kind == fract.EventDone {
		result := "ok"
		if e.Err != nil {
			result = "error"
		}
		o.duration.WithLabelValues(result).Observe(e.Duration.Seconds())
		return
	}
	o.events.WithLabelValues(string(e.Kind), string(e.Method)).Inc()
}

// Describe implements prometheus.Collector.
func (o *Observer) Describe(ch chan<- *prometheus.Desc) {
	o.events.Describe(ch)
	o.duration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (o *Observer) Collect(ch chan<- prometheus.Metric) {
	o.events.Collect(ch)
	o.duration.Collect(ch)
}

// Snapshot gathers g and returns its samples in the text exposition format,
// one line each, sorted. Comments and histogram buckets are left out. Used
// for one-shot reporting where no scrape endpoint exists.
func Snapshot(g prometheus.Gatherer) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("metrics: render %s: %w", mf.GetName(), err)
		}
	}

	var lines []string
	for _, line := range strings.Split(buf.String(), "\n") {
		if line == "" || strings.HasPrefix(line, "#") || strings.Contains(line, "_bucket{") {
			continue
		}
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines, nil
}

var _ fract.Observer = (*Observer)(nil)
var _ prometheus.Collector = (*Observer)(nil)
