package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	e, err := Lookup(Quorum)
	require.NoError(t, err)
	assert.True(t, e.RequiresDurable)
	assert.Contains(t, e.UnsupportedKeys, "x-max-priority")

	_, err = Lookup("stream")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target queue type")
}

func TestTargets(t *testing.T) {
	assert.Equal(t, []string{Quorum}, Targets())
}

func TestUnsupportedValueKeysSorted(t *testing.T) {
	e, err := Lookup(Quorum)
	require.NoError(t, err)
	assert.Equal(t, []string{"overflow", "x-overflow", "x-queue-mode"}, e.UnsupportedValueKeys())
}
