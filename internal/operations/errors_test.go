package operations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"plain error", errors.New("boom"), ErrorTypeExecution},
		{"deadline", fmt.Errorf("read: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"cancelled", context.Canceled, ErrorTypeCancellation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opErr := WrapError(tt.err, "load")
			require.NotNil(t, opErr)
			assert.Equal(t, tt.wantType, opErr.Type)
			assert.Equal(t, "load", opErr.Step)
			assert.ErrorIs(t, opErr, tt.err)
			assert.Equal(t, tt.wantType, GetErrorType(opErr))
			assert.Equal(t, "load", FailedStep(opErr))
		})
	}
}

func TestWrapError_KeepsExistingStep(t *testing.T) {
	inner := NewExecutionError("clean", errors.New("bad"))
	wrapped := WrapError(fmt.Errorf("outer: %w", inner), "validate")
	assert.Equal(t, "clean", wrapped.Step)

	noStep := &OperationError{Type: ErrorTypeExecution, Message: "x"}
	assert.Equal(t, "cost", WrapError(noStep, "cost").Step)

	assert.Nil(t, WrapError(nil, "cost"))
}

func TestOperationError_Error(t *testing.T) {
	err := NewExecutionError("load", errors.New("no such sheet"))
	assert.Equal(t, "[execution] load: step execution failed: no such sheet", err.Error())

	nf := NewNotFoundError("abc")
	assert.Equal(t, "[not_found] job abc not found", nf.Error())

	var nilErr *OperationError
	assert.Equal(t, "unknown operation error", nilErr.Error())
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(errors.New("x")))
}
