// Package analyzer decides whether a queue can move to a target queue type
// and lists what the move will cost.
package analyzer

import (
	"fmt"
	"regexp"

	"github.com/ottermq/qhop/internal/core/capability"
	"github.com/ottermq/qhop/internal/core/models"
)

const (
	blockerNonDurable = "Non-durable queues cannot be migrated."
	blockerExclusive  = "Exclusive queues are not supported."
	blockerAutoDelete = "Auto-delete queues cannot be migrated."
)

// Evaluate checks q against the capability matrix entry of target. policy is
// the policy applied to q, or nil. The returned error is only set for a target
// the matrix does not know.
func Evaluate(q models.QueueDescriptor, policy *models.Policy, target string) (models.MigrationVerdict, error) {
	entry, err := capability.Lookup(target)
	if err != nil {
		return models.MigrationVerdict{}, err
	}

	v := models.MigrationVerdict{
		Blockers: []string{},
		Warnings: []string{},
	}

	if !q.Durable && entry.RequiresDurable {
		v.Blockers = append(v.Blockers, blockerNonDurable)
	}
	if q.Exclusive {
		v.Blockers = append(v.Blockers, blockerExclusive)
	}
	if q.AutoDelete {
		v.Blockers = append(v.Blockers, blockerAutoDelete)
	}

	for _, key := range capability.DroppedSettings {
		if q.Arguments.Has(key) {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Setting '%s' will be removed during migration.", key))
		}
	}

	for _, key := range entry.UnsupportedValueKeys() {
		val, ok := q.Arguments[key]
		if !ok {
			continue
		}
		for _, bad := range entry.UnsupportedValues[key] {
			if s, ok := val.(string); ok && s == bad {
				v.Warnings = append(v.Warnings,
					fmt.Sprintf("Argument '%s=%v' is not compatible with %s queues.", key, val, target))
			}
		}
	}

	if HasMirroring(policy) {
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"Queue has classic mirroring policy '%s'. This policy will be ignored when migrating to %s. Migration will proceed.",
			policy.Name, target))
		v.MirroringPolicy = policy
	}

	return v, nil
}

// FindPolicy returns the first policy, in the given order, that applies to
// queues and whose pattern matches the beginning of queueName. Policies with
// an invalid pattern are skipped.
func FindPolicy(policies []models.Policy, queueName string) *models.Policy {
	for i := range policies {
		p := &policies[i]
		if p.ApplyTo != "queues" && p.ApplyTo != "all" {
			continue
		}
		re, err := regexp.Compile("^(?:" + p.Pattern + ")")
		if err != nil {
			continue
		}
		if re.MatchString(queueName) {
			return p
		}
	}
	return nil
}

// PolicyByName returns the policy named name, or nil.
func PolicyByName(policies []models.Policy, name string) *models.Policy {
	if name == "" {
		return nil
	}
	for i := range policies {
		if policies[i].Name == name {
			return &policies[i]
		}
	}
	return nil
}

// AppliedPolicy resolves the policy of q: the one the broker reports by name
// when present, else the first matching one.
func AppliedPolicy(policies []models.Policy, q models.QueueDescriptor) *models.Policy {
	if p := PolicyByName(policies, q.Policy); p != nil {
		return p
	}
	return FindPolicy(policies, q.Name)
}

// HasMirroring reports whether p defines any classic mirroring key.
func HasMirroring(p *models.Policy) bool {
	if p == nil {
		return false
	}
	for _, key := range capability.MirroringKeys {
		if _, ok := p.Definition[key]; ok {
			return true
		}
	}
	return false
}
