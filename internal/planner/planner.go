// Package planner produces migration reports without touching the broker.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/ottermq/qhop/internal/core/analyzer"
	"github.com/ottermq/qhop/internal/core/capability"
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/ottermq/qhop/pkg/metrics"
	"github.com/rs/zerolog"
)

// Source is the read-only part of the management API the planner needs.
type Source interface {
	GetQueue(ctx context.Context, vhost, name string) (models.QueueDescriptor, error)
	ListQueues(ctx context.Context, vhost string) ([]models.QueueDTO, error)
	ListPolicies(ctx context.Context, vhost string) ([]models.Policy, error)
}

type Options struct {
	Source  Source
	Metrics metrics.MetricsCollector
	Logger  zerolog.Logger
}

type Planner struct {
	source  Source
	metrics metrics.MetricsCollector
	logger  zerolog.Logger
}

func New(opts Options) *Planner {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewCollector(&metrics.Config{Enabled: false})
	}
	return &Planner{source: opts.Source, metrics: m, logger: opts.Logger}
}

// Analyze evaluates q against every known target type. policies are the
// policies of q's vhost in broker order; the first one matching q's name is
// checked for mirroring.
func Analyze(q models.QueueDescriptor, policies []models.Policy) (models.MigrationPlan, error) {
	policy := analyzer.FindPolicy(policies, q.Name)
	verdicts := make(map[string]models.MigrationVerdict)
	for _, target := range capability.Targets() {
		v, err := analyzer.Evaluate(q, policy, target)
		if err != nil {
			return models.MigrationPlan{}, err
		}
		verdicts[target] = v
	}
	return models.NewPlan(q, verdicts), nil
}

// PlanQueue builds the plan of a single queue.
func (p *Planner) PlanQueue(ctx context.Context, vhost, name string) (models.MigrationPlan, error) {
	q, err := p.source.GetQueue(ctx, vhost, name)
	if err != nil {
		return models.MigrationPlan{}, fmt.Errorf("fetch queue %q: %w", name, err)
	}
	policies := p.policies(ctx, vhost)
	plan, err := Analyze(q, policies)
	if err != nil {
		return models.MigrationPlan{}, err
	}
	p.record(plan)
	return plan, nil
}

// PlanAll builds a plan for every queue of vhost, ordered by queue name.
func (p *Planner) PlanAll(ctx context.Context, vhost string) ([]models.MigrationPlan, error) {
	queues, err := p.source.ListQueues(ctx, vhost)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	policies := p.policies(ctx, vhost)

	plans := make([]models.MigrationPlan, 0, len(queues))
	for _, dto := range queues {
		plan, err := Analyze(dto.Descriptor(vhost), policies)
		if err != nil {
			return nil, err
		}
		p.record(plan)
		plans = append(plans, plan)
	}
	sortPlans(plans)
	p.logger.Info().Str("vhost", vhost).Int("queues", len(plans)).Msg("Plans built")
	return plans, nil
}

// PlanDefinitions builds plans from a broker definitions export. Only queues
// of vhost are considered, or all of them when vhost is empty.
func (p *Planner) PlanDefinitions(r io.Reader, vhost string) ([]models.MigrationPlan, error) {
	var defs models.Definitions
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode definitions: %w", err)
	}

	plans := make([]models.MigrationPlan, 0, len(defs.Queues))
	for _, entry := range defs.Queues {
		dto := entry.DTO()
		if vhost != "" && dto.VHost != vhost {
			continue
		}
		q := dto.Descriptor(vhost)
		plan, err := Analyze(q, defs.PoliciesFor(q.VHost))
		if err != nil {
			return nil, err
		}
		p.record(plan)
		plans = append(plans, plan)
	}
	sortPlans(plans)
	return plans, nil
}

// policies lists the policies of vhost. A listing failure only disables the
// mirroring check.
func (p *Planner) policies(ctx context.Context, vhost string) []models.Policy {
	policies, err := p.source.ListPolicies(ctx, vhost)
	if err != nil {
		p.logger.Warn().Err(err).Str("vhost", vhost).Msg("Could not list policies; skipping mirroring check")
		return nil
	}
	return policies
}

func (p *Planner) record(plan models.MigrationPlan) {
	status := plan.Status()
	p.metrics.RecordPlan(string(status))
	event := p.logger.Debug()
	if status == models.StatusBlocked {
		event = p.logger.Info()
	}
	event.Str("vhost", plan.VHost).Str("queue", plan.QueueName).Str("status", string(status)).Msg("Queue analyzed")
}

func sortPlans(plans []models.MigrationPlan) {
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].VHost != plans[j].VHost {
			return plans[i].VHost < plans[j].VHost
		}
		return plans[i].QueueName < plans[j].QueueName
	})
}

// Summary counts plans per status.
type Summary struct {
	Total   int `json:"total"`
	Good    int `json:"good"`
	Warning int `json:"warning"`
	Blocked int `json:"blocked"`
}

func Summarize(plans []models.MigrationPlan) Summary {
	s := Summary{Total: len(plans)}
	for _, plan := range plans {
		switch plan.Status() {
		case models.StatusBlocked:
			s.Blocked++
		case models.StatusWarning:
			s.Warning++
		default:
			s.Good++
		}
	}
	return s
}
