package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineErrorKindRoundTrip(t *testing.T) {
	err := Errorf(KindCapacity, "budget of %d bytes exceeded", 50)
	assert.Equal(t, KindCapacity, KindOf(err))
	assert.True(t, IsKind(err, KindCapacity))
	assert.False(t, IsKind(err, KindValidation))
	assert.Equal(t, "capacity: budget of 50 bytes exceeded", err.Error())
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindEmbedding, cause, "batch %d failed", 2)

	assert.Equal(t, KindEmbedding, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "batch 2 failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOfSurvivesWrapping(t *testing.T) {
	inner := Errorf(KindNotFound, "document missing")
	wrapped := fmt.Errorf("handling request: %w", inner)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestKindOfForeignError(t *testing.T) {
	require.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	require.Equal(t, ErrorKind(""), KindOf(nil))
}
