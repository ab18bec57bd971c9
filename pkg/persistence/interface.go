package persistence

import "github.com/ottermq/qhop/internal/core/models"

// ReportStore defines the interface for all report storage backends
type ReportStore interface {
	// SaveReport replaces the stored report with plans
	SaveReport(plans []models.MigrationPlan) error
	// LoadReport reads back the last saved report
	LoadReport() ([]models.MigrationPlan, error)

	// Location describes where the report lives, for user output
	Location() string

	// Lifecycle
	Initialize() error
	Close() error
}

// Config for persistence implementations
type Config struct {
	Type    Format            `json:"type"`    // "json", "yaml" or "dummy"
	Path    string            `json:"path"`    // Report file
	Options map[string]string `json:"options"` // Implementation-specific options
}
