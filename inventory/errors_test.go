package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	shellErr := &ShellResolutionError{ProductID: "p1", Name: "Sofa", Matches: 3}
	assert.ErrorIs(t, shellErr, ErrShellAmbiguous)
	assert.True(t, IsClientError(shellErr))
	assert.Contains(t, shellErr.Error(), "3 shells")

	pErr := &PersistenceError{Op: "insert transaction", Err: assert.AnError}
	assert.ErrorIs(t, pErr, ErrPersistence)
	assert.ErrorIs(t, pErr, assert.AnError)
	assert.False(t, IsClientError(pErr))

	assert.True(t, IsNotFound(ErrSupplierNotFound))
	assert.True(t, IsRetryable(ErrConcurrentModification))
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "shell_unresolved", Outcome(shellErr))
	assert.Equal(t, "persistence", Outcome(pErr))
	assert.Equal(t, "not_found", Outcome(ErrTransactionNotFound))
	assert.Equal(t, "conflict", Outcome(ErrDuplicate))
	assert.True(t, IsClientError(ErrDuplicate))

	recErr := &ValidationError{Record: "product", Fields: map[string]string{"Name": "is required"}}
	assert.ErrorIs(t, recErr, ErrInvalidRecord)
	assert.Equal(t, "invalid product: Name: is required", recErr.Error())
}
