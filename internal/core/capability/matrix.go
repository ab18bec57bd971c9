// Package capability declares what each target queue type accepts.
package capability

import (
	"fmt"
	"sort"
)

// Queue types known to the matrix.
const (
	Classic = "classic"
	Quorum  = "quorum"
)

// Entry describes the constraints of one target queue type.
type Entry struct {
	// RequiresDurable is set when the type cannot host transient queues.
	RequiresDurable bool
	// UnsupportedKeys are argument keys stripped when declaring the target type.
	// Order is significant: it is the order removed keys are reported in.
	UnsupportedKeys []string
	// UnsupportedValues maps an argument key to the values the type rejects.
	UnsupportedValues map[string][]string
}

// DroppedSettings are the arguments called out to the operator because they
// silently disappear on migration.
var DroppedSettings = []string{
	"x-queue-version",
	"x-queue-master-locator",
	"x-max-priority",
}

// MirroringKeys are the policy definition keys of classic queue mirroring.
var MirroringKeys = []string{
	"ha-mode",
	"ha-params",
	"ha-sync-mode",
	"ha-promote-on-shutdown",
	"ha-promote-on-failure",
}

var matrix = map[string]Entry{
	Quorum: {
		RequiresDurable: true,
		UnsupportedKeys: []string{
			"exclusive",
			"auto-delete",
			"x-max-priority",
			"x-queue-master-locator",
			"x-queue-version",
			"x-queue-mode",
		},
		UnsupportedValues: map[string][]string{
			"x-queue-mode": {"lazy"},
			"overflow":     {"reject-publish-dlx"},
			"x-overflow":   {"reject-publish-dlx"},
		},
	},
}

// Lookup returns the entry for target.
func Lookup(target string) (Entry, error) {
	e, ok := matrix[target]
	if !ok {
		return Entry{}, fmt.Errorf("unsupported target queue type %q (supported: %v)", target, Targets())
	}
	return e, nil
}

// Targets lists the target types the matrix knows, sorted.
func Targets() []string {
	out := make([]string, 0, len(matrix))
	for t := range matrix {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// UnsupportedValueKeys returns the keys of the unsupported-values table, sorted,
// so that rule evaluation is deterministic.
func (e Entry) UnsupportedValueKeys() []string {
	keys := make([]string, 0, len(e.UnsupportedValues))
	for k := range e.UnsupportedValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
