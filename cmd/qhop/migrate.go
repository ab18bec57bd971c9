package main

import (
	"fmt"
	"strings"

	"github.com/ottermq/qhop/internal/migration"
	"github.com/ottermq/qhop/internal/relocation"
	"github.com/ottermq/qhop/internal/render"
	"github.com/spf13/cobra"
)

func (a *app) migrateCommand() *cobra.Command {
	var (
		queues []string
		all    bool
		target string
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate queues to another queue type",
		Long: `migrate recreates each queue as the target type under the same name.
Messages are moved to a temporary queue and back, and bindings are restored.
Queues are migrated one at a time; the first failure stops the batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(queues) > 0) == all {
				return fmt.Errorf("either --queue or --all is required")
			}
			ctx := cmd.Context()
			control := a.managementClient()

			if all {
				list, err := control.ListQueues(ctx, a.cfg.VHost)
				if err != nil {
					return fmt.Errorf("list queues: %w", err)
				}
				for _, q := range list {
					if q.QueueType() == target || strings.HasSuffix(q.Name, migration.TempQueueName("")) {
						continue
					}
					queues = append(queues, q.Name)
				}
				if len(queues) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No %s candidates in vhost %q.\n", target, a.cfg.VHost)
					return nil
				}
			}

			opts := migration.Options{
				Control: control,
				Relocator: relocation.NewEngine(a.amqpDialer(), relocation.Options{
					InactivityTimeout: a.cfg.InactivityTimeout,
					ProgressBatch:     a.cfg.ProgressBatch,
					ConfirmDelivery:   a.cfg.ConfirmDelivery,
					Logger:            a.logger.With().Str("component", "relocation").Logger(),
				}),
				Metrics: a.metrics,
				Logger:  a.logger.With().Str("component", "migration").Logger(),
			}
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			if j != nil {
				defer j.Close()
				opts.Recorder = j
			}

			outcomes, err := migration.New(opts).MigrateAll(ctx, a.cfg.VHost, queues, target)
			w := cmd.OutOrStdout()
			for _, out := range outcomes {
				render.Outcome(w, out)
			}
			if err != nil {
				return &reportedError{err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&queues, "queue", "q", nil, "queue to migrate (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "migrate every queue of the vhost that is not of the target type yet")
	cmd.Flags().StringVarP(&target, "type", "t", "quorum", "target queue type")
	return cmd
}
