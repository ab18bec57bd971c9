package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "qhop"

// Collector records migration metrics into its own Prometheus registry.
// A CLI run is short-lived, so the registry is written out as a
// node_exporter textfile instead of being scraped.
type Collector struct {
	registry *prometheus.Registry

	migrationsStarted  *prometheus.CounterVec
	migrationsFinished *prometheus.CounterVec
	migrationDuration  prometheus.Histogram
	stepDuration       *prometheus.HistogramVec
	stepFailures       *prometheus.CounterVec
	messagesMoved      *prometheus.CounterVec
	plans              *prometheus.CounterVec
	lastFinished       prometheus.Gauge

	config *Config
}

// Config holds configuration for metrics collection
type Config struct {
	Enabled bool // Enable/disable metrics collection
}

// DefaultConfig returns sensible defaults for metrics collection
func DefaultConfig() *Config {
	return &Config{Enabled: true}
}

// NewCollector creates a new metrics collector with the given configuration
func NewCollector(config *Config) *Collector {
	if config == nil {
		config = DefaultConfig()
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		migrationsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_started_total",
			Help:      "Queue migrations started, by vhost and target queue type.",
		}, []string{"vhost", "target"}),
		migrationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_finished_total",
			Help:      "Queue migrations finished, by vhost and final status.",
		}, []string{"vhost", "status"}),
		migrationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_duration_seconds",
			Help:      "Wall time of a single queue migration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_step_duration_seconds",
			Help:      "Wall time of each migration step.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migration_step_failures_total",
			Help:      "Migration steps that ended in an error.",
		}, []string{"step"}),
		messagesMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_relocated_total",
			Help:      "Messages relocated between the original and the temporary queue.",
		}, []string{"direction"}),
		plans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Queues analysed, by plan status.",
		}, []string{"status"}),
		lastFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_migration_finished_timestamp_seconds",
			Help:      "Unix time the last migration finished.",
		}),
		config: config,
	}

	c.registry.MustRegister(
		c.migrationsStarted,
		c.migrationsFinished,
		c.migrationDuration,
		c.stepDuration,
		c.stepFailures,
		c.messagesMoved,
		c.plans,
		c.lastFinished,
	)
	return c
}

// Registry exposes the underlying registry, e.g. for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ========================================
// Migration Metrics
// ========================================

// RecordMigrationStarted counts a migration attempt
func (c *Collector) RecordMigrationStarted(vhost, target string) {
	if !c.config.Enabled {
		return
	}
	c.migrationsStarted.WithLabelValues(vhost, target).Inc()
}

// RecordMigrationFinished records the outcome of a migration attempt
func (c *Collector) RecordMigrationFinished(vhost, status string, elapsed time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.migrationsFinished.WithLabelValues(vhost, status).Inc()
	c.migrationDuration.Observe(elapsed.Seconds())
	c.lastFinished.SetToCurrentTime()
}

// RecordStep records how long a step took and whether it failed
func (c *Collector) RecordStep(step string, elapsed time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.stepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
	if err != nil {
		c.stepFailures.WithLabelValues(step).Inc()
	}
}

// RecordMessagesMoved adds relocated messages for a direction
func (c *Collector) RecordMessagesMoved(direction string, count int) {
	if !c.config.Enabled || count <= 0 {
		return
	}
	c.messagesMoved.WithLabelValues(direction).Add(float64(count))
}

// ========================================
// Planning Metrics
// ========================================

// RecordPlan counts an analysed queue by plan status
func (c *Collector) RecordPlan(status string) {
	if !c.config.Enabled {
		return
	}
	c.plans.WithLabelValues(status).Inc()
}

// ========================================
// Utility
// ========================================

// IsEnabled returns whether metrics collection is enabled
func (c *Collector) IsEnabled() bool {
	return c.config.Enabled
}

// WriteTextfile writes all metrics to path in the Prometheus text format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
