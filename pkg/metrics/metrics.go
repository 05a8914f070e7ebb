// Package metrics provides Prometheus metrics for builds and validation runs
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/pipeline"
)

const DefaultNamespace = "hb"

// Collector records stage and component build metrics. It implements
// pipeline.Observer and validate.Observer.
type Collector struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stagesTotal   *prometheus.CounterVec

	componentBuilds *prometheus.CounterVec
	lastRunTime     prometheus.Gauge
}

var _ pipeline.Observer = (*Collector)(nil)

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of build stages in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
			},
			[]string{"stage", "outcome"},
		),
		stagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stages_total",
				Help:      "Total number of build stages run",
			},
			[]string{"stage", "outcome"},
		),
		componentBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "component_builds_total",
				Help:      "Total number of isolated component builds",
			},
			[]string{"product", "status"},
		),
		lastRunTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp",
				Help:      "Timestamp of the last finished stage or component build",
			},
		),
	}

	c.registry.MustRegister(c.stageDuration, c.stagesTotal, c.componentBuilds, c.lastRunTime)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) ObserveStage(stage string, outcome pipeline.StageOutcome, elapsed time.Duration) {
	c.stageDuration.WithLabelValues(stage, string(outcome)).Observe(elapsed.Seconds())
	c.stagesTotal.WithLabelValues(stage, string(outcome)).Inc()
	c.lastRunTime.SetToCurrentTime()
}

func (c *Collector) ObserveComponent(product, component string, passed bool) {
	status := "failed"
	if passed {
		status = "passed"
	}
	c.componentBuilds.WithLabelValues(product, status).Inc()
	c.lastRunTime.SetToCurrentTime()
}

// WriteTextfile writes the metrics in the text exposition format, for the
// node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	logger.Debugf("metrics written to %s", path)
	return nil
}
