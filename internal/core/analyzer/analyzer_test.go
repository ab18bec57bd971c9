package analyzer

import (
	"testing"

	"github.com/ottermq/qhop/internal/core/capability"
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func durableQueue(args models.Arguments) models.QueueDescriptor {
	return models.QueueDescriptor{
		Name:      "orders",
		VHost:     "/",
		Type:      "classic",
		Durable:   true,
		Arguments: args,
	}
}

func TestEvaluate_Blockers(t *testing.T) {
	tests := []struct {
		name  string
		queue models.QueueDescriptor
		want  []string
	}{
		{
			name:  "exclusive",
			queue: models.QueueDescriptor{Name: "q", Durable: true, Exclusive: true},
			want:  []string{blockerExclusive},
		},
		{
			name:  "non durable",
			queue: models.QueueDescriptor{Name: "q"},
			want:  []string{blockerNonDurable},
		},
		{
			name:  "all three in fixed order",
			queue: models.QueueDescriptor{Name: "q", Exclusive: true, AutoDelete: true},
			want:  []string{blockerNonDurable, blockerExclusive, blockerAutoDelete},
		},
		{
			name:  "exclusive regardless of arguments",
			queue: models.QueueDescriptor{Name: "q", Durable: true, Exclusive: true, Arguments: models.Arguments{"x-message-ttl": 1000}},
			want:  []string{blockerExclusive},
		},
		{
			name:  "clean",
			queue: durableQueue(nil),
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Evaluate(tt.queue, nil, capability.Quorum)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Blockers)
		})
	}
}

func TestEvaluate_LazyQueueMode(t *testing.T) {
	v, err := Evaluate(durableQueue(models.Arguments{"x-queue-mode": "lazy"}), nil, capability.Quorum)
	require.NoError(t, err)

	assert.Empty(t, v.Blockers)
	assert.Contains(t, v.Warnings, "Argument 'x-queue-mode=lazy' is not compatible with quorum queues.")
}

func TestEvaluate_MaxPriority(t *testing.T) {
	v, err := Evaluate(durableQueue(models.Arguments{"x-max-priority": 10}), nil, capability.Quorum)
	require.NoError(t, err)

	assert.Empty(t, v.Blockers)
	assert.Equal(t, []string{"Setting 'x-max-priority' will be removed during migration."}, v.Warnings)
}

func TestEvaluate_MixedArguments(t *testing.T) {
	q := models.QueueDescriptor{
		Name:      "dummy",
		VHost:     "dummy_vhost",
		Type:      "classic",
		Durable:   true,
		Exclusive: true,
		Arguments: models.Arguments{
			"x-max-priority":  10,
			"x-queue-mode":    "lazy",
			"overflow":        "reject-publish-dlx",
			"x-queue-version": 1,
		},
	}

	v, err := Evaluate(q, nil, capability.Quorum)
	require.NoError(t, err)

	assert.Contains(t, v.Warnings, "Argument 'x-queue-mode=lazy' is not compatible with quorum queues.")
	assert.Contains(t, v.Warnings, "Argument 'overflow=reject-publish-dlx' is not compatible with quorum queues.")
	assert.Contains(t, v.Warnings, "Setting 'x-queue-version' will be removed during migration.")
	assert.Contains(t, v.Warnings, "Setting 'x-max-priority' will be removed during migration.")
	assert.Equal(t, []string{blockerExclusive}, v.Blockers)
}

func TestEvaluate_ValueMatchIsExact(t *testing.T) {
	v, err := Evaluate(durableQueue(models.Arguments{
		"x-queue-mode": "lazy-ish",
		"x-overflow":   "reject-publish",
	}), nil, capability.Quorum)
	require.NoError(t, err)
	assert.Empty(t, v.Warnings)
}

func TestEvaluate_MirroringPolicyWarnsOnly(t *testing.T) {
	p := &models.Policy{Name: "ha-all", Pattern: ".*", ApplyTo: "all", Definition: map[string]any{"ha-mode": "all"}}

	v, err := Evaluate(durableQueue(nil), p, capability.Quorum)
	require.NoError(t, err)

	assert.Empty(t, v.Blockers)
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "classic mirroring policy 'ha-all'")
	assert.Same(t, p, v.MirroringPolicy)
}

func TestEvaluate_NonMirroringPolicy(t *testing.T) {
	p := &models.Policy{Name: "ttl", Pattern: ".*", ApplyTo: "queues", Definition: map[string]any{"message-ttl": 60000}}

	v, err := Evaluate(durableQueue(nil), p, capability.Quorum)
	require.NoError(t, err)
	assert.Empty(t, v.Warnings)
	assert.Nil(t, v.MirroringPolicy)
}

func TestEvaluate_UnknownTarget(t *testing.T) {
	_, err := Evaluate(durableQueue(nil), nil, "stream")
	assert.Error(t, err)
}

func TestFindPolicy(t *testing.T) {
	policies := []models.Policy{
		{Name: "exchanges-only", Pattern: ".*", ApplyTo: "exchanges"},
		{Name: "broken", Pattern: "(", ApplyTo: "queues"},
		{Name: "orders", Pattern: "order", ApplyTo: "queues"},
		{Name: "catch-all", Pattern: ".*", ApplyTo: "all"},
	}

	p := FindPolicy(policies, "orders.eu")
	require.NotNil(t, p)
	assert.Equal(t, "orders", p.Name, "first match wins")

	p = FindPolicy(policies, "billing")
	require.NotNil(t, p)
	assert.Equal(t, "catch-all", p.Name)

	// matching is anchored at the start of the name
	p = FindPolicy(policies[:3], "eu.orders")
	assert.Nil(t, p)

	assert.Nil(t, FindPolicy(nil, "orders"))
}

func TestAppliedPolicy_PrefersReportedName(t *testing.T) {
	policies := []models.Policy{
		{Name: "catch-all", Pattern: ".*", ApplyTo: "all"},
		{Name: "ha", Pattern: "^orders$", ApplyTo: "queues", Definition: map[string]any{"ha-mode": "all"}},
	}

	q := durableQueue(nil)
	assert.Equal(t, "catch-all", AppliedPolicy(policies, q).Name)

	q.Policy = "ha"
	assert.Equal(t, "ha", AppliedPolicy(policies, q).Name)

	q.Policy = "gone"
	assert.Equal(t, "catch-all", AppliedPolicy(policies, q).Name)
}

func TestHasMirroring(t *testing.T) {
	assert.False(t, HasMirroring(nil))
	assert.False(t, HasMirroring(&models.Policy{Definition: map[string]any{"max-length": 10}}))
	for _, key := range capability.MirroringKeys {
		assert.True(t, HasMirroring(&models.Policy{Definition: map[string]any{key: "x"}}), key)
	}
}
