package main

import (
	"fmt"
	"os"

	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/internal/planner"
	"github.com/ottermq/qhop/internal/render"
	"github.com/ottermq/qhop/pkg/persistence"
	"github.com/ottermq/qhop/pkg/persistence/implementations/dummy"
	jsonstore "github.com/ottermq/qhop/pkg/persistence/implementations/json"
	yamlstore "github.com/ottermq/qhop/pkg/persistence/implementations/yaml"
	"github.com/spf13/cobra"
)

func (a *app) planCommand() *cobra.Command {
	var (
		queue    string
		all      bool
		file     string
		asJSON   bool
		report   string
		format   string
		noReport bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Analyze queues for migration and write a report",
		Long:  "plan evaluates queues against every supported target type and lists what blocks or changes the migration. Nothing on the broker is modified.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if countSet(queue != "", all, file != "") != 1 {
				return fmt.Errorf("exactly one of --queue, --all or --file is required")
			}

			p := planner.New(planner.Options{
				Source:  a.managementClient(),
				Metrics: a.metrics,
				Logger:  a.logger.With().Str("component", "planner").Logger(),
			})

			var plans []models.MigrationPlan
			switch {
			case queue != "":
				plan, err := p.PlanQueue(cmd.Context(), a.cfg.VHost, queue)
				if err != nil {
					return err
				}
				plans = []models.MigrationPlan{plan}
			case all:
				var err error
				if plans, err = p.PlanAll(cmd.Context(), a.cfg.VHost); err != nil {
					return err
				}
			default:
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open definitions: %w", err)
				}
				defer f.Close()
				// an export covers every vhost unless one was asked for
				vhost := ""
				if cmd.Flags().Changed("vhost") {
					vhost = a.cfg.VHost
				}
				if plans, err = p.PlanDefinitions(f, vhost); err != nil {
					return err
				}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), plans)
			}

			render.Plans(cmd.OutOrStdout(), plans)
			if noReport {
				return nil
			}
			store, err := a.reportStore(format, report)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.SaveReport(plans); err != nil {
				return fmt.Errorf("save report: %w", err)
			}
			if loc := store.Location(); loc != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\nReport saved to %s\n", loc)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&queue, "queue", "q", "", "analyze a single queue")
	cmd.Flags().BoolVar(&all, "all", false, "analyze every queue of the vhost")
	cmd.Flags().StringVarP(&file, "file", "f", "", "analyze a broker definitions export instead of a live broker")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON instead of a table")
	cmd.Flags().StringVar(&report, "report", a.cfg.ReportPath, "report file")
	cmd.Flags().StringVar(&format, "format", a.cfg.ReportFormat, "report format (json, yaml)")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "do not write a report file")
	return cmd
}

func (a *app) reportStore(format, path string) (persistence.ReportStore, error) {
	f, err := persistence.ParseFormat(format, path)
	if err != nil {
		return nil, err
	}
	cfg := &persistence.Config{Type: f, Path: path}
	switch f {
	case persistence.FormatYAML:
		return yamlstore.NewYamlReportStore(cfg)
	case persistence.FormatDummy:
		return &dummy.DummyReportStore{}, nil
	default:
		return jsonstore.NewJsonReportStore(cfg)
	}
}

func countSet(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
