// Package metrics exposes the counters of an import run to Prometheus.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/ruslano69/productimport/pkg/core/product"
	"github.com/ruslano69/productimport/pkg/report"
)

// Collector holds the metrics of one run on its own registry
type Collector struct {
	registry *prometheus.Registry

	// productsTotal counts product outcomes by type and status.
	productsTotal *prometheus.CounterVec

	// flushesTotal counts storage flushes by product type.
	flushesTotal *prometheus.CounterVec

	// flushDuration observes how long one flush of a batch takes.
	flushDuration *prometheus.HistogramVec

	// flushSize observes the number of products per flush.
	flushSize *prometheus.HistogramVec

	runDuration prometheus.Gauge
	runFatal    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New creates a collector on a fresh registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		productsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "productimport_products_total",
				Help: "Products processed, by type and outcome",
			},
			[]string{"type", "status"},
		),
		flushesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "productimport_flushes_total",
				Help: "Batch flushes to the store, by product type",
			},
			[]string{"type"},
		),
		flushDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "productimport_flush_duration_seconds",
				Help:    "Duration of one batch flush",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"type"},
		),
		flushSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "productimport_flush_size",
				Help:    "Products per batch flush",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"type"},
		),
		runDuration: f.NewGauge(prometheus.GaugeOpts{
			Name: "productimport_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		runFatal: f.NewGauge(prometheus.GaugeOpts{
			Name: "productimport_run_fatal",
			Help: "1 if the last run aborted on a fatal error",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "productimport_last_success_timestamp_seconds",
			Help: "Unix time the last run without fatal error finished",
		}),
	}
}

// Registry returns the collector's registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// ProductImported implements report.ProductObserver
func (c *Collector) ProductImported(p *product.Product) {
	c.productsTotal.WithLabelValues(p.Kind.String(), p.Status().String()).Inc()
}

// ObserveFlush records one flush of size products
func (c *Collector) ObserveFlush(kind product.Kind, size int, d time.Duration) {
	c.flushesTotal.WithLabelValues(kind.String()).Inc()
	c.flushDuration.WithLabelValues(kind.String()).Observe(d.Seconds())
	c.flushSize.WithLabelValues(kind.String()).Observe(float64(size))
}

// Finish records the run summary
func (c *Collector) Finish(s report.Summary) {
	c.runDuration.Set(s.Duration.Seconds())
	if s.Fatal {
		c.runFatal.Set(1)
		return
	}
	c.runFatal.Set(0)
	c.lastSuccess.Set(float64(s.FinishedAt.Unix()))
}

// Push sends the registry to a Pushgateway under job
func (c *Collector) Push(ctx context.Context, url, job string) error {
	err := push.New(url, job).
		Gatherer(c.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
