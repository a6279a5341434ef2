package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const collectTimeout = 2 * time.Second

// Collector exports Facade stats as Prometheus metrics. Values are read at
// scrape time, so the collector holds no state of its own.
type Collector struct {
	facade *Facade

	up            *prometheus.Desc
	size          *prometheus.Desc
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	hitRate       *prometheus.Desc
	durableErrors *prometheus.Desc
}

// NewCollector creates a collector for the given facade.
func NewCollector(facade *Facade, namespace string) *Collector {
	return &Collector{
		facade: facade,
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "durable_up"),
			"Whether the durable cache tier answers a ping.",
			nil, nil,
		),
		size: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Number of cached recipes per tier.",
			[]string{"tier"}, nil,
		),
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Cache hits per tier.",
			[]string{"tier"}, nil,
		),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Lookups that missed both tiers.",
			nil, nil,
		),
		hitRate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hit_rate"),
			"Share of lookups served from either tier.",
			nil, nil,
		),
		durableErrors: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "durable_errors_total"),
			"Durable tier operations that failed.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.up
	ch <- c.size
	ch <- c.hits
	ch <- c.misses
	ch <- c.hitRate
	ch <- c.durableErrors
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	s := c.facade.Stats(ctx)

	up := 0.0
	if s.DurableAvailable {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.FastSize), "fast")
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(s.DurableSize), "durable")
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.FastHits), "fast")
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.DurableHits), "durable")
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, s.HitRate)
	ch <- prometheus.MustNewConstMetric(c.durableErrors, prometheus.CounterValue, float64(s.DurableErrors))
}
