package main

import (
	"strings"

	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/internal/render"
	"github.com/spf13/cobra"
)

func (a *app) queuesCommand() *cobra.Command {
	var (
		name   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "queues",
		Short: "List the queues of a vhost",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.managementClient().ListQueues(cmd.Context(), a.cfg.VHost)
			if err != nil {
				return err
			}
			rows := make([]models.QueueSummary, 0, len(list))
			for _, q := range list {
				if name != "" && !strings.Contains(q.Name, name) {
					continue
				}
				if q.VHost == "" {
					q.VHost = a.cfg.VHost
				}
				rows = append(rows, q.Summary())
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			render.Queues(cmd.OutOrStdout(), rows)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "only list queues whose name contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
