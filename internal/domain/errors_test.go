package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipelineErrorFormatting(t *testing.T) {
	err := NewPipelineError(ErrUpstreamUnavailable, "correlator", "collaborator timed out")
	assert.Equal(t, "UPSTREAM_UNAVAILABLE [correlator]: collaborator timed out", err.Error())
	assert.False(t, err.Timestamp.IsZero())

	withEntity := NewPipelineError(ErrInvalidInput, "pipeline", "encounter failed validation").WithEntity("enc-1")
	assert.Equal(t, "INVALID_INPUT [pipeline/enc-1]: encounter failed validation", withEntity.Error())
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPipelineError(ErrUpstreamUnavailable, "reasoning", "request failed").WithCause(cause)

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("processing encounter: %w", err)
	var pe *PipelineError
	require.ErrorAs(t, wrapped, &pe)
	assert.Equal(t, ErrUpstreamUnavailable, pe.Code)
}

func TestIsPipelineCode(t *testing.T) {
	err := NewPipelineError(ErrInsufficientOpinions, "council", "no opinions succeeded")

	assert.True(t, IsPipelineCode(err, ErrInsufficientOpinions))
	assert.False(t, IsPipelineCode(err, ErrConfiguration))
	assert.True(t, IsPipelineCode(fmt.Errorf("wrapped: %w", err), ErrInsufficientOpinions))
	assert.False(t, IsPipelineCode(errors.New("plain"), ErrInsufficientOpinions))
	assert.False(t, IsPipelineCode(nil, ErrInsufficientOpinions))
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("encounter_id", "is required", "")
	assert.Equal(t, "validation error for field 'encounter_id': is required", err.Error())
}
