package render

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/fatih/color"
	qerrors "github.com/ottermq/qhop/internal/core/errors"
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/internal/journal"
	"github.com/ottermq/qhop/internal/migration"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestPlans(t *testing.T) {
	plans := []models.MigrationPlan{
		models.NewPlan(models.QueueDescriptor{Name: "orders", VHost: "/", Type: "classic", Durable: true},
			map[string]models.MigrationVerdict{"quorum": {}}),
		models.NewPlan(models.QueueDescriptor{Name: "tmp", VHost: "/", Type: "classic"},
			map[string]models.MigrationVerdict{"quorum": {Blockers: []string{"Non-durable queues cannot be migrated."}}}),
	}

	var buf bytes.Buffer
	Plans(&buf, plans)
	out := buf.String()

	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "Non-durable queues cannot be migrated.")
	assert.Regexp(t, `Total queues\s+2`, out)
	assert.Regexp(t, `Good\s+1`, out)
	assert.Regexp(t, `Blocked\s+1`, out)
}

func TestQueues(t *testing.T) {
	var buf bytes.Buffer
	Queues(&buf, nil)
	assert.Equal(t, "No queues found.\n", buf.String())

	buf.Reset()
	Queues(&buf, []models.QueueSummary{{Name: "orders", Type: "quorum", Messages: 42, State: "running"}})
	assert.Regexp(t, `orders\s+quorum\s+42\s+running`, buf.String())
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	History(&buf, []journal.Run{{
		ID: "r1", VHost: "/", Queue: "orders", Target: "quorum",
		StartedAt: time.Now(), Status: "aborted", LastStep: "MOVE_BACK", MovedForward: 5, MovedBack: 2,
	}})
	assert.Regexp(t, `orders\s+quorum\s+aborted\s+MOVE_BACK\s+5\s+2`, buf.String())
}

func TestOutcome(t *testing.T) {
	out := &migration.Outcome{
		Queue:        "orders",
		Target:       "quorum",
		StepName:     "REBIND",
		Warnings:     []string{"Setting 'x-max-priority' will be removed during migration."},
		MovedBack:    5,
		Rebound:      2,
		RecoveryHint: "restore bindings",
	}

	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"success", nil, []string{"✓ Queue 'orders' migrated to quorum: 5 message(s), 2 binding(s)", "⚠ Setting 'x-max-priority'"}},
		{
			"blocked",
			qerrors.NewMigrationError(qerrors.KindValidation, "FETCH_SETTINGS", "/", "orders", nil, "Exclusive queues are not supported."),
			[]string{"[Migration blocked]", "- Exclusive queues are not supported."},
		},
		{
			"cleanup",
			qerrors.NewMigrationError(qerrors.KindCleanup, "DELETE_TEMP", "/", "orders", errors.New("boom")),
			[]string{"[Migration warning]", "cleanup failed: boom", "restore bindings"},
		},
		{
			"halted",
			qerrors.NewMigrationError(qerrors.KindPartialMigration, "REBIND", "/", "orders", errors.New("400")),
			[]string{"[Migration halted] Queue 'orders' stopped at REBIND", "Recovery: restore bindings"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			o := *out
			o.Err = tt.err
			Outcome(&buf, &o)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}
