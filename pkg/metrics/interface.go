package metrics

import "time"

// MetricsCollector is the interface for metrics collection in qhop.
// This interface allows for easy mocking in tests.
type MetricsCollector interface {
	// Migration metrics
	RecordMigrationStarted(vhost, target string)
	RecordMigrationFinished(vhost, status string, elapsed time.Duration)
	RecordStep(step string, elapsed time.Duration, err error)
	RecordMessagesMoved(direction string, count int)

	// Planning metrics
	RecordPlan(status string)

	// Utility
	IsEnabled() bool
}

// Relocation directions.
const (
	DirectionForward = "forward"
	DirectionBack    = "back"
)

// Ensure Collector implements MetricsCollector
var _ MetricsCollector = (*Collector)(nil)

// Ensure MockCollector implements MetricsCollector
var _ MetricsCollector = (*MockCollector)(nil)
