package metrics

import (
	"sync"
	"time"
)

// MockCollector is a simple mock implementation of MetricsCollector for testing.
type MockCollector struct {
	mu sync.RWMutex

	Started     []string
	Finished    map[string]int
	Steps       []string
	FailedSteps []string
	Moved       map[string]int
	Plans       map[string]int

	enabled bool
}

// NewMockCollector creates a new mock collector.
func NewMockCollector() *MockCollector {
	return &MockCollector{
		Finished: make(map[string]int),
		Moved:    make(map[string]int),
		Plans:    make(map[string]int),
		enabled:  true,
	}
}

// Migration metrics
func (m *MockCollector) RecordMigrationStarted(vhost, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started = append(m.Started, vhost+"|"+target)
}

func (m *MockCollector) RecordMigrationFinished(vhost, status string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Finished[status]++
}

func (m *MockCollector) RecordStep(step string, elapsed time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Steps = append(m.Steps, step)
	if err != nil {
		m.FailedSteps = append(m.FailedSteps, step)
	}
}

func (m *MockCollector) RecordMessagesMoved(direction string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Moved[direction] += count
}

// Planning metrics
func (m *MockCollector) RecordPlan(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Plans[status]++
}

// Utility
func (m *MockCollector) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// StepsSnapshot returns a copy of the recorded step names.
func (m *MockCollector) StepsSnapshot() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Steps...)
}
