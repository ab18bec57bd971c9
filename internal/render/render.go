// Package render prints plans, queue lists, run history and migration results
// for a terminal.
package render

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	qerrors "github.com/ottermq/qhop/internal/core/errors"
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/internal/journal"
	"github.com/ottermq/qhop/internal/migration"
	"github.com/ottermq/qhop/internal/planner"
)

const maxColWidth = 80

var (
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	green  = color.New(color.FgGreen)
)

func newTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = maxColWidth
	table.Wrap = true
	return table
}

// Plans prints one row per queue followed by the status counts.
func Plans(w io.Writer, plans []models.MigrationPlan) {
	table := newTable()
	table.AddRow("VHOST", "QUEUE", "TYPE", "STATUS", "DETAILS")
	for _, p := range plans {
		details := p.AllBlockers()
		if len(details) == 0 {
			details = p.AllWarnings()
		}
		table.AddRow(p.VHost, p.QueueName, p.CurrentType, p.Status(), strings.Join(details, " "))
	}
	fmt.Fprintln(w, table)
	fmt.Fprintln(w)
	Summary(w, planner.Summarize(plans))
}

// Summary prints the Good / Warning / Blocked counts.
func Summary(w io.Writer, s planner.Summary) {
	table := newTable()
	table.RightAlign(1)
	table.AddRow("Total queues", s.Total)
	table.AddRow(string(models.StatusGood), s.Good)
	table.AddRow(string(models.StatusWarning), s.Warning)
	table.AddRow(string(models.StatusBlocked), s.Blocked)
	fmt.Fprintln(w, table)
}

// Queues prints a queue listing.
func Queues(w io.Writer, queues []models.QueueSummary) {
	if len(queues) == 0 {
		fmt.Fprintln(w, "No queues found.")
		return
	}
	table := newTable()
	table.RightAlign(2)
	table.AddRow("NAME", "TYPE", "MESSAGES", "STATE")
	for _, q := range queues {
		table.AddRow(q.Name, q.Type, q.Messages, q.State)
	}
	fmt.Fprintln(w, table)
}

// History prints journaled runs, newest first.
func History(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No migrations recorded.")
		return
	}
	table := newTable()
	table.AddRow("STARTED", "VHOST", "QUEUE", "TARGET", "STATUS", "LAST STEP", "FORWARD", "BACK")
	for _, r := range runs {
		table.AddRow(r.StartedAt.Local().Format(time.DateTime), r.VHost, r.Queue, r.Target, r.Status, r.LastStep, r.MovedForward, r.MovedBack)
	}
	fmt.Fprintln(w, table)
}

// Outcome prints the result of one migration as a colored status line.
func Outcome(w io.Writer, out *migration.Outcome) {
	err := out.Err
	for _, warning := range out.Warnings {
		yellow.Fprintf(w, "  ⚠ %s\n", warning)
	}

	switch {
	case err == nil:
		green.Fprintf(w, "✓ Queue '%s' migrated to %s: %d message(s), %d binding(s) restored in %s\n",
			out.Queue, out.Target, out.MovedBack, out.Rebound, out.Elapsed.Round(time.Millisecond))

	case qerrors.Is(err, qerrors.KindValidation):
		yellow.Fprintf(w, "[Migration blocked] Queue '%s' cannot be migrated to %s.\n", out.Queue, out.Target)
		for _, reason := range reasons(err) {
			yellow.Fprintf(w, "  - %s\n", reason)
		}

	case qerrors.Is(err, qerrors.KindCleanup):
		yellow.Fprintf(w, "[Migration warning] Queue '%s' migrated to %s but cleanup failed: %v\n", out.Queue, out.Target, causeOf(err))
		fmt.Fprintf(w, "  %s\n", out.RecoveryHint)

	default:
		red.Fprintf(w, "[Migration halted] Queue '%s' stopped at %s: %v\n", out.Queue, out.StepName, err)
		if out.RecoveryHint != "" {
			fmt.Fprintf(w, "  Recovery: %s\n", out.RecoveryHint)
		}
	}
}

func causeOf(err error) error {
	var me *qerrors.MigrationError
	if errors.As(err, &me) && me.Unwrap() != nil {
		return me.Unwrap()
	}
	return err
}

func reasons(err error) []string {
	var me *qerrors.MigrationError
	if !errors.As(err, &me) {
		return nil
	}
	if len(me.Reasons()) > 0 {
		return me.Reasons()
	}
	if cause := me.Unwrap(); cause != nil {
		return []string{cause.Error()}
	}
	return nil
}
