package json

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/pkg/persistence"
)

type JsonReportStore struct {
	path string
}

var _ persistence.ReportStore = (*JsonReportStore)(nil)

func NewJsonReportStore(config *persistence.Config) (*JsonReportStore, error) {
	js := &JsonReportStore{
		path: config.Path,
	}
	return js, js.Initialize()
}

func (js *JsonReportStore) Initialize() error {
	if js.path == "" {
		return fmt.Errorf("json report store: empty path")
	}
	return persistence.EnsureDir(js.path)
}

func (js *JsonReportStore) Close() error {
	// JSON implementation doesn't need to clean up
	return nil
}

func (js *JsonReportStore) Location() string {
	return js.path
}

// SaveReport writes plans as an indented JSON array
func (js *JsonReportStore) SaveReport(plans []models.MigrationPlan) error {
	if plans == nil {
		plans = []models.MigrationPlan{}
	}
	data, err := json.MarshalIndent(plans, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return persistence.WriteFileAtomic(js.path, append(data, '\n'))
}

// LoadReport reads the report back. Numbers inside queue arguments and policy
// definitions are kept as json.Number so they survive unchanged.
func (js *JsonReportStore) LoadReport() ([]models.MigrationPlan, error) {
	data, err := os.ReadFile(js.path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Decode parses a JSON report.
func Decode(data []byte) ([]models.MigrationPlan, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var plans []models.MigrationPlan
	if err := dec.Decode(&plans); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return plans, nil
}
