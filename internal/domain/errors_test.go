package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("registering: %w", WrapError(CodePersistence, "inserting policy", errors.New("disk full")))

	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrUnknownPlan)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "disk full")

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CodePersistence, code)
}

func TestError_NotRetryable(t *testing.T) {
	assert.False(t, IsRetryable(ErrUnknownPlan))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(ErrDataUnavailable))
}
