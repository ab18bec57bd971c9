// Package migration moves a queue to another queue type by recreating it and
// relocating its messages through a temporary queue.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ottermq/qhop/internal/core/analyzer"
	qerrors "github.com/ottermq/qhop/internal/core/errors"
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/internal/management"
	"github.com/ottermq/qhop/internal/relocation"
	"github.com/ottermq/qhop/pkg/metrics"
	"github.com/rs/zerolog"
)

// ControlPlane is the subset of the management API the orchestrator drives.
type ControlPlane interface {
	GetQueue(ctx context.Context, vhost, name string) (models.QueueDescriptor, error)
	QueueExists(ctx context.Context, vhost, name string) (bool, error)
	PutQueue(ctx context.Context, vhost, name string, req models.PutQueueRequest) error
	DeleteQueue(ctx context.Context, vhost, name string, ifEmpty bool) error
	ListQueueBindings(ctx context.Context, vhost, name string) ([]models.Binding, error)
	CreateBinding(ctx context.Context, vhost, exchange, queue string, req models.CreateBindingRequest) error
	ListPolicies(ctx context.Context, vhost string) ([]models.Policy, error)
}

// Relocator moves all messages of one queue into another.
type Relocator interface {
	Relocate(ctx context.Context, vhost, source, destination string) (relocation.Result, error)
}

// Recorder persists the progress of runs. Failures to record are logged and
// never stop a migration.
type Recorder interface {
	BeginRun(ctx context.Context, runID, vhost, queue, target string) error
	RecordStep(ctx context.Context, runID, step string, stepErr error) error
	FinishRun(ctx context.Context, runID, status, lastStep string, forward, back int, runErr error) error
}

// Final statuses of a run.
const (
	StatusCompleted   = "completed"
	StatusCleanupLeft = "completed_cleanup_required"
	StatusBlocked     = "blocked"
	StatusAborted     = "aborted"
	StatusCancelled   = "cancelled"
)

// Options configures an Orchestrator.
type Options struct {
	Control   ControlPlane
	Relocator Relocator
	Recorder  Recorder
	Metrics   metrics.MetricsCollector
	Logger    zerolog.Logger
}

// Orchestrator runs queue migrations one at a time. It never retries a failed
// step and never rolls back: an aborted run leaves the broker as it was at the
// failing step and reports how to recover.
type Orchestrator struct {
	control   ControlPlane
	relocator Relocator
	recorder  Recorder
	metrics   metrics.MetricsCollector
	logger    zerolog.Logger
}

func New(opts Options) *Orchestrator {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewCollector(&metrics.Config{Enabled: false})
	}
	return &Orchestrator{
		control:   opts.Control,
		relocator: opts.Relocator,
		recorder:  opts.Recorder,
		metrics:   m,
		logger:    opts.Logger,
	}
}

// Outcome describes how far a migration got.
type Outcome struct {
	RunID     string `json:"run_id"`
	VHost     string `json:"vhost"`
	Queue     string `json:"queue"`
	TempQueue string `json:"temp_queue"`
	Target    string `json:"target"`
	Step      Step   `json:"-"`
	StepName  string `json:"step"`
	Status    string `json:"status"`

	Warnings         []string         `json:"warnings,omitempty"`
	RemovedArguments []string         `json:"removed_arguments,omitempty"`
	Bindings         []models.Binding `json:"bindings,omitempty"`
	Rebound          int              `json:"rebound"`
	MovedForward     int              `json:"moved_forward"`
	MovedBack        int              `json:"moved_back"`
	Elapsed          time.Duration    `json:"elapsed"`
	RecoveryHint     string           `json:"recovery_hint,omitempty"`

	// Err is the error Migrate returned with this outcome.
	Err error `json:"-"`
}

// TempQueueName is the name of the queue that holds messages while name is
// being recreated.
func TempQueueName(name string) string {
	return name + "_temp_migrated"
}

// Migrate moves queue name of vhost to the target queue type. The returned
// Outcome is never nil. A non-nil error is a *errors.MigrationError; of its
// kinds only KindCleanup means the queue itself was migrated.
func (o *Orchestrator) Migrate(ctx context.Context, vhost, name, target string) (*Outcome, error) {
	out := &Outcome{
		RunID:     uuid.NewString(),
		VHost:     vhost,
		Queue:     name,
		TempQueue: TempQueueName(name),
		Target:    target,
		Step:      StepStart,
	}
	r := &run{
		o:      o,
		ctx:    ctx,
		bg:     context.WithoutCancel(ctx),
		out:    out,
		logger: o.logger.With().Str("run_id", out.RunID).Str("vhost", vhost).Str("queue", name).Str("target", target).Logger(),
	}

	start := time.Now()
	o.metrics.RecordMigrationStarted(vhost, target)
	if o.recorder != nil {
		if err := o.recorder.BeginRun(r.bg, out.RunID, vhost, name, target); err != nil {
			r.logger.Warn().Err(err).Msg("Failed to journal migration start")
		}
	}
	r.logger.Info().Msg("Starting migration")

	err := r.execute()

	out.Elapsed = time.Since(start)
	out.Err = err
	out.Status = statusOf(err)
	if err == nil {
		out.Step = StepDone
	}
	out.StepName = out.Step.String()
	o.metrics.RecordMigrationFinished(vhost, out.Status, out.Elapsed)

	if err != nil {
		out.RecoveryHint = recoveryHint(out.Step, out)
		if !r.changed {
			out.RecoveryHint = recoveryHint(StepStart, out)
		}
		event := r.logger.Error()
		if qerrors.Is(err, qerrors.KindCleanup) {
			event = r.logger.Warn()
		}
		event.Err(err).Str("step", out.StepName).Str("recovery", out.RecoveryHint).Msg("Migration halted")
	} else {
		r.logger.Info().Int("messages", out.MovedBack).Int("bindings", out.Rebound).Dur("elapsed", out.Elapsed).Msg("Migration completed")
	}

	if o.recorder != nil {
		if rerr := o.recorder.FinishRun(r.bg, out.RunID, out.Status, out.StepName, out.MovedForward, out.MovedBack, err); rerr != nil {
			r.logger.Warn().Err(rerr).Msg("Failed to journal migration result")
		}
	}
	return out, err
}

// MigrateAll migrates the named queues one after another, in order. It stops
// at the first queue that is not migrated; a leftover temporary queue does not
// stop the batch.
func (o *Orchestrator) MigrateAll(ctx context.Context, vhost string, names []string, target string) ([]*Outcome, error) {
	outcomes := make([]*Outcome, 0, len(names))
	var cleanupErrs []error
	for _, name := range names {
		out, err := o.Migrate(ctx, vhost, name, target)
		outcomes = append(outcomes, out)
		if err == nil {
			continue
		}
		if qerrors.Is(err, qerrors.KindCleanup) {
			cleanupErrs = append(cleanupErrs, err)
			continue
		}
		return outcomes, err
	}
	return outcomes, errors.Join(cleanupErrs...)
}

func statusOf(err error) string {
	switch qerrors.KindOf(err) {
	case qerrors.KindUnknown:
		if err == nil {
			return StatusCompleted
		}
		return StatusAborted
	case qerrors.KindCleanup:
		return StatusCleanupLeft
	case qerrors.KindValidation:
		return StatusBlocked
	case qerrors.KindCancelled:
		return StatusCancelled
	default:
		return StatusAborted
	}
}

// run carries the state of one Migrate call.
type run struct {
	o      *Orchestrator
	ctx    context.Context
	bg     context.Context // for journaling after cancellation
	out    *Outcome
	logger zerolog.Logger

	queue    models.QueueDescriptor
	bindings []models.Binding
	// changed is set once a request that may alter the broker has been sent.
	changed bool
}

func (r *run) execute() error {
	steps := []struct {
		step Step
		fn   func() error
	}{
		{StepFetchSettings, r.fetchSettings},
		{StepCheckPolicy, r.checkPolicy},
		{StepFetchBindings, r.fetchBindings},
		{StepCreateTemp, r.createTemp},
		{StepMoveForward, r.moveForward},
		{StepDeleteOriginal, r.deleteOriginal},
		{StepRecreateOriginal, r.recreateOriginal},
		{StepRebind, r.rebind},
		{StepMoveBack, r.moveBack},
		{StepVerifyCount, r.verifyCount},
		{StepDeleteTemp, r.deleteTemp},
	}
	for _, s := range steps {
		if err := r.enter(s.step, s.fn); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) enter(step Step, fn func() error) error {
	r.out.Step = step
	r.logger.Debug().Str("step", step.String()).Msg("Entering step")

	started := time.Now()
	var err error
	if cerr := r.ctx.Err(); cerr != nil {
		err = r.fail(qerrors.KindCancelled, cerr)
	} else {
		err = fn()
	}

	r.o.metrics.RecordStep(step.String(), time.Since(started), err)
	if r.o.recorder != nil {
		if rerr := r.o.recorder.RecordStep(r.bg, r.out.RunID, step.String(), err); rerr != nil {
			r.logger.Warn().Err(rerr).Str("step", step.String()).Msg("Failed to journal step")
		}
	}
	return err
}

func (r *run) fail(kind qerrors.Kind, cause error, reasons ...string) error {
	return qerrors.NewMigrationError(kind, r.out.Step.String(), r.out.VHost, r.out.Queue, cause, reasons...)
}

// failed classifies an error returned by a collaborator during the current step.
func (r *run) failed(cause error) error {
	step := r.out.Step
	switch {
	case r.ctx.Err() != nil || errors.Is(cause, context.Canceled):
		return r.fail(qerrors.KindCancelled, cause)
	case step == StepFetchSettings && errors.Is(cause, management.ErrNotFound):
		return r.fail(qerrors.KindNotFound, cause)
	case !r.changed && management.IsTransient(cause):
		return r.fail(qerrors.KindTransient, cause)
	case !r.changed:
		return r.fail(qerrors.KindUnknown, cause)
	default:
		return r.fail(qerrors.KindPartialMigration, cause)
	}
}

func (r *run) fetchSettings() error {
	q, err := r.o.control.GetQueue(r.ctx, r.out.VHost, r.out.Queue)
	if err != nil {
		return r.failed(err)
	}
	r.queue = q

	if q.Type == r.out.Target {
		return r.fail(qerrors.KindValidation, nil, "Queue is already of type "+r.out.Target+".")
	}
	verdict, err := analyzer.Evaluate(q, nil, r.out.Target)
	if err != nil {
		return r.fail(qerrors.KindValidation, err)
	}
	if verdict.Blocked() {
		return r.fail(qerrors.KindValidation, nil, verdict.Blockers...)
	}
	r.setWarnings(verdict.Warnings)
	return nil
}

func (r *run) checkPolicy() error {
	policies, err := r.o.control.ListPolicies(r.ctx, r.out.VHost)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Could not list policies; skipping mirroring check")
		return nil
	}
	policy := analyzer.AppliedPolicy(policies, r.queue)
	if !analyzer.HasMirroring(policy) {
		r.logger.Debug().Msg("No mirroring policy applies")
		return nil
	}
	r.logger.Warn().Str("policy", policy.Name).Msg("Queue has a classic mirroring policy; it will be ignored")
	if verdict, err := analyzer.Evaluate(r.queue, policy, r.out.Target); err == nil {
		r.setWarnings(verdict.Warnings)
	}
	return nil
}

func (r *run) setWarnings(warnings []string) {
	for _, w := range warnings[len(r.out.Warnings):] {
		r.logger.Warn().Msg(w)
	}
	r.out.Warnings = warnings
}

func (r *run) fetchBindings() error {
	all, err := r.o.control.ListQueueBindings(r.ctx, r.out.VHost, r.out.Queue)
	if err != nil {
		return r.failed(err)
	}
	r.bindings = r.bindings[:0]
	for _, b := range all {
		if !b.IsDefault() {
			r.bindings = append(r.bindings, b)
		}
	}
	r.out.Bindings = r.bindings
	r.logger.Info().Int("bindings", len(r.bindings)).Msg("Bindings fetched")
	return nil
}

func (r *run) createTemp() error {
	exists, err := r.o.control.QueueExists(r.ctx, r.out.VHost, r.out.TempQueue)
	if err != nil {
		return r.failed(err)
	}
	if exists {
		return r.fail(qerrors.KindValidation, nil, "Temporary queue '"+r.out.TempQueue+"' already exists.")
	}

	args, removed, err := analyzer.PrepareArguments(r.queue.Arguments, r.out.Target)
	if err != nil {
		return r.fail(qerrors.KindValidation, err)
	}
	if len(removed) > 0 {
		r.logger.Info().Strs("removed", removed).Msg("Removing unsupported arguments")
	}
	r.out.RemovedArguments = removed

	r.changed = true
	if err := r.o.control.PutQueue(r.ctx, r.out.VHost, r.out.TempQueue, models.PutQueueRequest{
		Durable:   r.queue.Durable,
		Arguments: args,
	}); err != nil {
		return r.failed(err)
	}
	r.logger.Info().Str("temp_queue", r.out.TempQueue).Msg("Temporary queue created")
	return nil
}

func (r *run) moveForward() error {
	res, err := r.o.relocator.Relocate(r.ctx, r.out.VHost, r.out.Queue, r.out.TempQueue)
	r.out.MovedForward = res.Moved
	r.o.metrics.RecordMessagesMoved(metrics.DirectionForward, res.Moved)
	if err != nil {
		return r.failed(err)
	}
	if res.Empty() {
		r.logger.Info().Msg("Source queue was empty")
	}
	return nil
}

func (r *run) deleteOriginal() error {
	if err := r.o.control.DeleteQueue(r.ctx, r.out.VHost, r.out.Queue, true); err != nil {
		return r.failed(err)
	}
	r.logger.Info().Msg("Original queue deleted")
	return nil
}

func (r *run) recreateOriginal() error {
	// recomputed from the original descriptor, not reused from CREATE_TEMP
	args, _, err := analyzer.PrepareArguments(r.queue.Arguments, r.out.Target)
	if err != nil {
		return r.fail(qerrors.KindPartialMigration, err)
	}
	if err := r.o.control.PutQueue(r.ctx, r.out.VHost, r.out.Queue, models.PutQueueRequest{
		Durable:   r.queue.Durable,
		Arguments: args,
	}); err != nil {
		return r.failed(err)
	}
	r.logger.Info().Msg("Queue recreated")
	return nil
}

func (r *run) rebind() error {
	for _, b := range r.bindings {
		if err := r.o.control.CreateBinding(r.ctx, r.out.VHost, b.Source, r.out.Queue, models.CreateBindingRequest{
			RoutingKey: b.RoutingKey,
			Arguments:  b.Arguments,
		}); err != nil {
			return r.failed(err)
		}
		r.out.Rebound++
		r.logger.Debug().Str("exchange", b.Source).Str("routing_key", b.RoutingKey).Msg("Binding restored")
	}
	return nil
}

func (r *run) moveBack() error {
	res, err := r.o.relocator.Relocate(r.ctx, r.out.VHost, r.out.TempQueue, r.out.Queue)
	r.out.MovedBack = res.Moved
	r.o.metrics.RecordMessagesMoved(metrics.DirectionBack, res.Moved)
	if err != nil {
		return r.failed(err)
	}
	return nil
}

func (r *run) verifyCount() error {
	if r.out.MovedBack != r.out.MovedForward {
		return r.fail(qerrors.KindDataIntegrity, nil,
			fmt.Sprintf("moved %d message(s) forward but %d back", r.out.MovedForward, r.out.MovedBack))
	}
	return nil
}

func (r *run) deleteTemp() error {
	if err := r.o.control.DeleteQueue(r.ctx, r.out.VHost, r.out.TempQueue, false); err != nil {
		return r.fail(qerrors.KindCleanup, err)
	}
	return nil
}
