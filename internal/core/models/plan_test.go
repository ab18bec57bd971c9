package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPlan_Status(t *testing.T) {
	q := QueueDescriptor{Name: "orders", VHost: "/", Type: "classic", Durable: true}

	good := NewPlan(q, map[string]MigrationVerdict{"quorum": {}})
	assert.Equal(t, StatusGood, good.Status())
	assert.NotNil(t, good.Blockers["quorum"], "empty verdict lists must encode as []")

	warn := NewPlan(q, map[string]MigrationVerdict{"quorum": {Warnings: []string{"w"}}})
	assert.Equal(t, StatusWarning, warn.Status())

	blocked := NewPlan(q, map[string]MigrationVerdict{"quorum": {Blockers: []string{"b"}, Warnings: []string{"w"}}})
	assert.Equal(t, StatusBlocked, blocked.Status())
	assert.Equal(t, []string{"b"}, blocked.AllBlockers())
}

func TestNewPlan_KeepsMirroringPolicy(t *testing.T) {
	p := &Policy{Name: "ha-all", Pattern: ".*", ApplyTo: "all", Definition: map[string]any{"ha-mode": "all"}}
	plan := NewPlan(QueueDescriptor{Name: "q"}, map[string]MigrationVerdict{"quorum": {MirroringPolicy: p}})
	assert.Same(t, p, plan.MirroringPolicy)
}

func TestQueueDTO_QueueType(t *testing.T) {
	assert.Equal(t, "quorum", QueueDTO{Type: "quorum"}.QueueType())
	assert.Equal(t, "stream", QueueDTO{Arguments: Arguments{QueueTypeArgument: "stream"}}.QueueType())
	assert.Equal(t, DefaultQueueType, QueueDTO{}.QueueType())
}

func TestQueueDTO_DescriptorCopiesArguments(t *testing.T) {
	dto := QueueDTO{Name: "q", Arguments: Arguments{"x-max-length": 10}}
	d := dto.Descriptor("/")
	d.Arguments["x-max-length"] = 20

	assert.Equal(t, 10, dto.Arguments["x-max-length"])
	assert.Equal(t, "/", d.VHost)
}

func TestDefinitions_PoliciesFor(t *testing.T) {
	defs := Definitions{Policies: []Policy{
		{Name: "a", VHost: "/"},
		{Name: "b", VHost: "other"},
		{Name: "c"},
	}}
	got := defs.PoliciesFor("/")
	if assert.Len(t, got, 2) {
		assert.Equal(t, "a", got[0].Name)
		assert.Equal(t, "c", got[1].Name)
	}
}

func TestDefinitionQueue_Defaults(t *testing.T) {
	dto := DefinitionQueue{Name: "orders"}.DTO()
	assert.Equal(t, "/", dto.VHost)
	assert.True(t, dto.Durable)

	transient := false
	dto = DefinitionQueue{Name: "tmp", VHost: "analytics", Durable: &transient}.DTO()
	assert.Equal(t, "analytics", dto.VHost)
	assert.False(t, dto.Durable)
}
