package models

import "sort"

// MigrationVerdict is the analyzer's answer for one queue and one target type.
// Non-empty Blockers means the migration must not start.
type MigrationVerdict struct {
	Blockers        []string `json:"blockers" yaml:"blockers"`
	Warnings        []string `json:"warnings" yaml:"warnings"`
	MirroringPolicy *Policy  `json:"mirroring_policy,omitempty" yaml:"mirroring_policy,omitempty"`
}

// Blocked reports whether the verdict has at least one blocker.
func (v MigrationVerdict) Blocked() bool {
	return len(v.Blockers) > 0
}

// PlanStatus summarises a plan for reporting.
type PlanStatus string

const (
	StatusGood    PlanStatus = "Good"
	StatusWarning PlanStatus = "Warning"
	StatusBlocked PlanStatus = "Blocked"
)

// MigrationPlan is one record of a migration report.
type MigrationPlan struct {
	QueueName        string              `json:"queue_name" yaml:"queue_name"`
	VHost            string              `json:"vhost" yaml:"vhost"`
	CurrentType      string              `json:"current_type" yaml:"current_type"`
	Blockers         map[string][]string `json:"blockers" yaml:"blockers"`
	Warnings         map[string][]string `json:"warnings" yaml:"warnings"`
	MirroringPolicy  *Policy             `json:"mirroring_policy" yaml:"mirroring_policy"`
	OriginalSettings QueueDescriptor     `json:"original_settings" yaml:"original_settings"`
}

// NewPlan assembles a plan from per-target verdicts.
func NewPlan(q QueueDescriptor, verdicts map[string]MigrationVerdict) MigrationPlan {
	plan := MigrationPlan{
		QueueName:        q.Name,
		VHost:            q.VHost,
		CurrentType:      q.Type,
		Blockers:         make(map[string][]string, len(verdicts)),
		Warnings:         make(map[string][]string, len(verdicts)),
		OriginalSettings: q,
	}
	for target, v := range verdicts {
		plan.Blockers[target] = nonNil(v.Blockers)
		plan.Warnings[target] = nonNil(v.Warnings)
		if v.MirroringPolicy != nil && plan.MirroringPolicy == nil {
			plan.MirroringPolicy = v.MirroringPolicy
		}
	}
	return plan
}

// Targets returns the target types covered by the plan, sorted.
func (p MigrationPlan) Targets() []string {
	seen := map[string]struct{}{}
	for t := range p.Blockers {
		seen[t] = struct{}{}
	}
	for t := range p.Warnings {
		seen[t] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AllBlockers flattens blockers across targets in target order.
func (p MigrationPlan) AllBlockers() []string {
	var out []string
	for _, t := range p.Targets() {
		out = append(out, p.Blockers[t]...)
	}
	return out
}

// AllWarnings flattens warnings across targets in target order.
func (p MigrationPlan) AllWarnings() []string {
	var out []string
	for _, t := range p.Targets() {
		out = append(out, p.Warnings[t]...)
	}
	return out
}

// Status classifies the plan: any blocker wins over any warning.
func (p MigrationPlan) Status() PlanStatus {
	switch {
	case len(p.AllBlockers()) > 0:
		return StatusBlocked
	case len(p.AllWarnings()) > 0:
		return StatusWarning
	default:
		return StatusGood
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
