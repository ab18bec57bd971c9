package main

import (
	"fmt"

	"github.com/ottermq/qhop/internal/render"
	"github.com/spf13/cobra"
)

func (a *app) historyCommand() *cobra.Command {
	var (
		limit  int
		runID  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled migration runs",
		Long:  "history lists past migrations with the last step each one reached, which tells what is left to do after an aborted run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return fmt.Errorf("the migration journal is disabled")
			}
			defer j.Close()

			w := cmd.OutOrStdout()
			if runID != "" {
				steps, err := j.Steps(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(w, steps)
				}
				for _, s := range steps {
					line := fmt.Sprintf("%s  %s", s.At.Local().Format("15:04:05.000"), s.Step)
					if s.Error != "" {
						line += "  " + s.Error
					}
					fmt.Fprintln(w, line)
				}
				return nil
			}

			runs, err := j.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(w, runs)
			}
			render.History(w, runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show; 0 shows all")
	cmd.Flags().StringVar(&runID, "run", "", "show the steps of one run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
