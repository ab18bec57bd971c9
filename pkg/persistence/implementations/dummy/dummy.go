package dummy

import (
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/pkg/persistence"
)

// DummyReportStore implements persistence.ReportStore with no-ops, for
// commands that print the report instead of saving it.
type DummyReportStore struct{}

var _ persistence.ReportStore = (*DummyReportStore)(nil)

func (d *DummyReportStore) SaveReport(plans []models.MigrationPlan) error { return nil }

// LoadReport returns an empty report
func (d *DummyReportStore) LoadReport() ([]models.MigrationPlan, error) { return nil, nil }

func (d *DummyReportStore) Location() string  { return "" }
func (d *DummyReportStore) Initialize() error { return nil }
func (d *DummyReportStore) Close() error      { return nil }
