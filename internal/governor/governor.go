// Package governor gates autonomous operation on an externally supplied
// confidence signal. A drop below the threshold latches the run into a
// waiting-for-human-review state until explicitly reset.
package governor

import (
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/yannabadie/appia-dev/internal/telemetry"
)

// ConfidenceEnvVar is the environment variable carrying the external
// confidence score. Unset or unparseable values read as full confidence.
const ConfidenceEnvVar = "JARVYS_CONFIDENCE_SCORE"

// ConfidenceSource reads the current external confidence score.
type ConfidenceSource func() float64

// EnvConfidenceSource reads the score from ConfidenceEnvVar, defaulting
// to 1.0.
func EnvConfidenceSource() float64 {
	raw := os.Getenv(ConfidenceEnvVar)
	if raw == "" {
		return 1.0
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 1.0
	}
	return score
}

// Governor decides after each iteration whether the loop may continue.
// Once suspended it stays suspended for every subsequent check until
// Reset is called.
type Governor struct {
	threshold float64
	source    ConfidenceSource
	logger    *zap.Logger

	mu        sync.Mutex
	suspended bool
}

// New returns a governor with the given threshold. A nil source reads from
// the environment.
func New(threshold float64, source ConfidenceSource, logger *zap.Logger) *Governor {
	if source == nil {
		source = EnvConfidenceSource
	}
	return &Governor{threshold: threshold, source: source, logger: logger}
}

// Check polls the confidence source and returns true when autonomous
// operation may continue. A score below the threshold suspends the run.
func (g *Governor) Check() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.suspended {
		return false
	}

	score := g.source()
	if score < g.threshold {
		g.suspended = true
		telemetry.Escalations.Inc()
		g.logger.Warn("confidence below threshold, suspending autonomous operation",
			zap.Float64("confidence", score),
			zap.Float64("threshold", g.threshold))
		return false
	}
	return true
}

// WaitingForHumanReview reports whether the run is suspended.
func (g *Governor) WaitingForHumanReview() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suspended
}

// Reset clears the suspension, resuming autonomous operation on the next
// Check. This is the external "human has reviewed" acknowledgement.
func (g *Governor) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.suspended {
		g.logger.Info("human review acknowledged, resuming autonomous operation")
	}
	g.suspended = false
}
