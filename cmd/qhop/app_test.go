package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/ottermq/qhop/config"
	qerrors "github.com/ottermq/qhop/internal/core/errors"
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/internal/journal"
	"github.com/ottermq/qhop/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type harness struct {
	b   *testutil.Broker
	cfg *config.Config
	dir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := testutil.NewBroker()
	dir := t.TempDir()
	cfg := &config.Config{
		ManagementURL:     testutil.StartManagementServer(t, b),
		HTTPTimeout:       2 * time.Second,
		HTTPRetryMax:      1,
		HTTPRetryWaitMin:  time.Millisecond,
		HTTPRetryWaitMax:  time.Millisecond,
		Username:          testutil.Username,
		Password:          testutil.Password,
		VHost:             "/",
		InactivityTimeout: 50 * time.Millisecond,
		ProgressBatch:     1000,
		ConfirmDelivery:   true,
		ReportPath:        filepath.Join(dir, "migration_report.json"),
		ReportFormat:      "",
		JournalPath:       filepath.Join(dir, "qhop.db"),
		MetricsFile:       filepath.Join(dir, "qhop.prom"),
		LogLevel:          "debug",
		Version:           "1.2.3",
	}
	return &harness{b: b, cfg: cfg, dir: dir}
}

// run executes one command line against a fresh app and returns its exit
// status and output.
func (h *harness) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	cfg := *h.cfg
	a := newApp(&cfg, &stdout, &stderr)
	a.dialer = h.b.Dialer()
	a.logWriter = io.Discard
	code := a.execute(context.Background(), args)
	return code, stdout.String(), stderr.String()
}

func (h *harness) seed() {
	h.b.DeclareQueue("/", models.QueueDTO{Name: "orders", Durable: true, Arguments: models.Arguments{"x-max-priority": 5}})
	h.b.Bind("/", "events", "orders", "order.*", nil)
	h.b.Publish("/", "orders", "a", "b", "c")
	h.b.DeclareQueue("/", models.QueueDTO{Name: "sessions", Durable: false})
	h.b.DeclareQueue("/", models.QueueDTO{Name: "billing", Durable: true, Arguments: models.Arguments{"x-queue-type": "quorum"}})
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	code, out, _ := h.run("version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "qhop 1.2.3\n", out)
}

func TestQueues_JSONWithFilter(t *testing.T) {
	h := newHarness(t)
	h.seed()

	code, out, stderr := h.run("queues", "--json", "--name", "ord")
	require.Equal(t, exitOK, code, stderr)

	var rows []models.QueueSummary
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "orders", rows[0].Name)
	assert.Equal(t, "classic", rows[0].Type)
	assert.Equal(t, 3, rows[0].Messages)
}

func TestPlan_RequiresOneSelector(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("plan")
	assert.Equal(t, exitAborted, code)
	assert.Contains(t, stderr, "Error: exactly one of --queue, --all or --file is required")
}

func TestPlan_AllAsJSON(t *testing.T) {
	h := newHarness(t)
	h.seed()

	code, out, stderr := h.run("plan", "--all", "--json")
	require.Equal(t, exitOK, code, stderr)

	var plans []models.MigrationPlan
	require.NoError(t, json.Unmarshal([]byte(out), &plans))
	require.Len(t, plans, 3)
	assert.Equal(t, "billing", plans[0].QueueName)
	assert.Equal(t, "orders", plans[1].QueueName)
	assert.Equal(t, models.StatusWarning, plans[1].Status())
	assert.Equal(t, models.StatusBlocked, plans[2].Status())

	_, err := os.Stat(h.cfg.ReportPath)
	assert.True(t, os.IsNotExist(err), "--json must not write a report")
}

func TestPlan_WritesYAMLReport(t *testing.T) {
	h := newHarness(t)
	h.seed()
	report := filepath.Join(h.dir, "out", "report.yaml")

	code, out, stderr := h.run("plan", "--queue", "orders", "--report", report)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "Report saved to "+report)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), "queue_name: orders")

	metricsText, err := os.ReadFile(h.cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `qhop_plans_total{status="Warning"} 1`)
}

func TestPlan_DefinitionsFile(t *testing.T) {
	h := newHarness(t)
	defs := filepath.Join(h.dir, "definitions.json")
	require.NoError(t, os.WriteFile(defs, []byte(`{"queues":[{"name":"jobs","vhost":"/","durable":true,"exclusive":true,"arguments":{}}]}`), 0644))

	code, out, stderr := h.run("plan", "--file", defs, "--json")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, out, "Exclusive queues are not supported.")
	assert.Empty(t, h.b.Requests(), "definitions are planned offline")
}

func TestMigrate_ThenHistory(t *testing.T) {
	h := newHarness(t)
	h.seed()

	code, out, stderr := h.run("migrate", "--queue", "orders")
	require.Equal(t, exitOK, code, stderr+out)
	assert.Contains(t, out, "✓ Queue 'orders' migrated to quorum: 3 message(s), 1 binding(s) restored")

	q, ok := h.b.Queue("/", "orders")
	require.True(t, ok)
	assert.Equal(t, "quorum", q.Type)
	assert.Equal(t, []string{"a", "b", "c"}, h.b.Messages("/", "orders"))

	metricsText, err := os.ReadFile(h.cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), `qhop_migrations_finished_total{status="completed",vhost="/"} 1`)

	code, out, stderr = h.run("history", "--json")
	require.Equal(t, exitOK, code, stderr)
	var runs []journal.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "orders", runs[0].Queue)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, "DONE", runs[0].LastStep)
}

func TestMigrate_AllSkipsTargetTypeAndStopsAtBlocked(t *testing.T) {
	h := newHarness(t)
	h.seed()

	code, out, _ := h.run("migrate", "--all")
	assert.Equal(t, exitValidation, code)
	assert.Contains(t, out, "✓ Queue 'orders' migrated")
	assert.Contains(t, out, "[Migration blocked] Queue 'sessions' cannot be migrated to quorum.")
	assert.Contains(t, out, "- Non-durable queues cannot be migrated.")
	assert.NotContains(t, out, "billing")
}

func TestMigrate_CleanupWarningExitCode(t *testing.T) {
	h := newHarness(t)
	h.seed()
	h.b.FailOn(testutil.OpDeleteQueue, "orders_temp_migrated", http.StatusBadRequest, 0)

	code, out, stderr := h.run("migrate", "-q", "orders")
	assert.Equal(t, exitCleanup, code)
	assert.Contains(t, out, "[Migration warning]")
	assert.Empty(t, stderr)
}

func TestHistory_JournalDisabled(t *testing.T) {
	h := newHarness(t)
	h.cfg.JournalPath = ""
	code, _, stderr := h.run("history")
	assert.Equal(t, exitAborted, code)
	assert.Contains(t, stderr, "journal is disabled")
}

func TestExitCode(t *testing.T) {
	cleanup := qerrors.NewMigrationError(qerrors.KindCleanup, "DELETE_TEMP", "/", "a", nil)
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{errors.New("boom"), exitAborted},
		{qerrors.NewMigrationError(qerrors.KindValidation, "FETCH_SETTINGS", "/", "a", nil), exitValidation},
		{&reportedError{err: cleanup}, exitCleanup},
		{errors.Join(cleanup, cleanup), exitCleanup},
		{qerrors.NewMigrationError(qerrors.KindDataIntegrity, "VERIFY_COUNT", "/", "a", nil), exitAborted},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
