package analyzer

import (
	"testing"

	"github.com/ottermq/qhop/internal/core/capability"
	"github.com/ottermq/qhop/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArguments(t *testing.T) {
	args := models.Arguments{
		"x-max-priority":   10,
		"some-other-arg":   "value",
		"x-queue-mode":     "lazy",
		"x-message-ttl":    60000,
		"x-dead-letter-ex": "dlx",
	}

	out, removed, err := FilterArguments(args, capability.Quorum)
	require.NoError(t, err)

	assert.Equal(t, []string{"x-max-priority", "x-queue-mode"}, removed)
	assert.Equal(t, models.Arguments{
		"some-other-arg":   "value",
		"x-message-ttl":    60000,
		"x-dead-letter-ex": "dlx",
	}, out)

	// input untouched
	assert.Len(t, args, 5)
}

func TestFilterArguments_NothingToRemove(t *testing.T) {
	out, removed, err := FilterArguments(models.Arguments{"x-some-ok-arg": 123}, capability.Quorum)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, models.Arguments{"x-some-ok-arg": 123}, out)

	out, removed, err = FilterArguments(nil, capability.Quorum)
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.NotNil(t, out)
}

func TestFilterArguments_Idempotent(t *testing.T) {
	args := models.Arguments{
		"x-max-priority":         10,
		"x-queue-version":        2,
		"x-queue-master-locator": "min-masters",
		"x-max-length":           100,
	}

	once, _, err := FilterArguments(args, capability.Quorum)
	require.NoError(t, err)
	twice, removed, err := FilterArguments(once, capability.Quorum)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Empty(t, removed)
}

func TestPrepareArguments(t *testing.T) {
	out, removed, err := PrepareArguments(models.Arguments{"x-max-priority": 5, "x-max-length": 100}, capability.Quorum)
	require.NoError(t, err)

	assert.Equal(t, []string{"x-max-priority"}, removed)
	assert.Equal(t, models.Arguments{"x-max-length": 100, "x-queue-type": "quorum"}, out)

	_, _, err = PrepareArguments(nil, "stream")
	assert.Error(t, err)
}
