package yaml

import (
	"fmt"
	"os"

	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/pkg/persistence"
	"gopkg.in/yaml.v3"
)

type YamlReportStore struct {
	path string
}

var _ persistence.ReportStore = (*YamlReportStore)(nil)

func NewYamlReportStore(config *persistence.Config) (*YamlReportStore, error) {
	ys := &YamlReportStore{path: config.Path}
	return ys, ys.Initialize()
}

func (ys *YamlReportStore) Initialize() error {
	if ys.path == "" {
		return fmt.Errorf("yaml report store: empty path")
	}
	return persistence.EnsureDir(ys.path)
}

func (ys *YamlReportStore) Close() error     { return nil }
func (ys *YamlReportStore) Location() string { return ys.path }

func (ys *YamlReportStore) SaveReport(plans []models.MigrationPlan) error {
	if plans == nil {
		plans = []models.MigrationPlan{}
	}
	data, err := yaml.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return persistence.WriteFileAtomic(ys.path, data)
}

func (ys *YamlReportStore) LoadReport() ([]models.MigrationPlan, error) {
	data, err := os.ReadFile(ys.path)
	if err != nil {
		return nil, err
	}
	var plans []models.MigrationPlan
	if err := yaml.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return plans, nil
}
