package governor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCheck_PassesAboveThreshold(t *testing.T) {
	g := New(0.85, func() float64 { return 0.9 }, zap.NewNop())

	assert.True(t, g.Check())
	assert.False(t, g.WaitingForHumanReview())
}

func TestCheck_ThresholdIsExclusive(t *testing.T) {
	g := New(0.85, func() float64 { return 0.85 }, zap.NewNop())
	assert.True(t, g.Check(), "a score equal to the threshold passes")
}

func TestCheck_SuspendsAndLatches(t *testing.T) {
	score := 0.5
	g := New(0.85, func() float64 { return score }, zap.NewNop())

	assert.False(t, g.Check())
	assert.True(t, g.WaitingForHumanReview())

	// Recovery of the signal alone must not resume the run.
	score = 1.0
	assert.False(t, g.Check())
	assert.True(t, g.WaitingForHumanReview())
}

func TestReset_ClearsSuspension(t *testing.T) {
	score := 0.5
	g := New(0.85, func() float64 { return score }, zap.NewNop())

	assert.False(t, g.Check())

	score = 1.0
	g.Reset()
	assert.False(t, g.WaitingForHumanReview())
	assert.True(t, g.Check())
}

func TestEnvConfidenceSource(t *testing.T) {
	t.Run("unset defaults to full confidence", func(t *testing.T) {
		t.Setenv(ConfidenceEnvVar, "")
		assert.Equal(t, 1.0, EnvConfidenceSource())
	})

	t.Run("reads valid values", func(t *testing.T) {
		t.Setenv(ConfidenceEnvVar, "0.42")
		assert.Equal(t, 0.42, EnvConfidenceSource())
	})

	t.Run("garbage defaults to full confidence", func(t *testing.T) {
		t.Setenv(ConfidenceEnvVar, "not-a-number")
		assert.Equal(t, 1.0, EnvConfidenceSource())
	})
}
