package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationError_Accessors(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewMigrationError(KindPartialMigration, "MOVE_FORWARD", "/", "orders", cause)

	assert.Equal(t, KindPartialMigration, err.Kind())
	assert.Equal(t, "MOVE_FORWARD", err.Step())
	assert.Equal(t, "/", err.VHost())
	assert.Equal(t, "orders", err.Queue())
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "partial_migration at MOVE_FORWARD")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMigrationError_Reasons(t *testing.T) {
	err := NewMigrationError(KindValidation, "FETCH_SETTINGS", "/", "q", nil,
		"Exclusive queues are not supported.", "Auto-delete queues cannot be migrated.")

	assert.Len(t, err.Reasons(), 2)
	assert.Contains(t, err.Error(), "Exclusive queues are not supported.; Auto-delete")
	assert.Nil(t, err.Unwrap())
}

func TestKindOf(t *testing.T) {
	base := NewMigrationError(KindDataIntegrity, "VERIFY_COUNT", "/", "q", nil)
	wrapped := fmt.Errorf("batch: %w", base)

	assert.Equal(t, KindDataIntegrity, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindDataIntegrity))
	assert.False(t, Is(wrapped, KindCleanup))
	assert.Equal(t, KindUnknown, KindOf(stderrors.New("plain")))
	assert.False(t, Is(nil, KindUnknown))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "cancelled", KindCancelled.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
