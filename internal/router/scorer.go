package router

// Scorer computes a fitness score for each model profile against a task
// analysis, blending static capabilities with recent performance history.
type Scorer struct {
	history *History
}

// NewScorer returns a scorer backed by the given outcome history.
func NewScorer(history *History) *Scorer {
	return &Scorer{history: history}
}

// Score returns the fitness of a model for a task.
//
// The base score is the mean of these components, each in [0,1]:
//   - reasoning capability weighted by the task's reasoning need
//   - creativity capability weighted by the task's creativity need
//   - speed capability weighted by the task's speed priority
//   - a 0.8 bonus (or 0) when the task needs multimodal support
//   - max(0, 1 - cost*100) when the task's complexity is below 0.3
//   - a 0.2 specialty bonus when the task type matches a specialty tag
//
// The base therefore lies in [0,1]. The historical adjustment adds at most
// 0.05 and subtracts at most 0.05, and the sum is capped at 1.0, so the
// final score lies in [-0.05, 1.0]. With an empty history the score is a
// pure function of the profile and the analysis.
func (s *Scorer) Score(profile ModelProfile, task TaskAnalysis) float64 {
	components := []float64{
		profile.ReasoningScore * task.ReasoningNeeded,
		profile.CreativityScore * task.CreativityNeeded,
		profile.SpeedScore * task.SpeedPriority,
	}

	if task.MultimodalNeeded {
		bonus := 0.0
		if profile.Multimodal {
			bonus = 0.8
		}
		components = append(components, bonus)
	}

	if task.Complexity < 0.3 {
		penalty := 1 - profile.CostPerKiloTokens*100
		if penalty < 0 {
			penalty = 0
		}
		components = append(components, penalty)
	}

	specialty := 0.0
	if profile.HasSpecialty(string(task.TaskType)) {
		specialty = 0.2
	}
	components = append(components, specialty)

	var sum float64
	for _, c := range components {
		sum += c
	}
	score := sum/float64(len(components)) + s.history.Bonus(profile.Identifier)

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// SelectBest returns the highest-scoring profile among the candidates.
// Candidates must be sorted by identifier; ties keep the lexicographically
// smaller identifier, so selection is stable across runs. Returns false when
// candidates is empty.
func (s *Scorer) SelectBest(candidates []ModelProfile, task TaskAnalysis) (ModelProfile, float64, bool) {
	var best ModelProfile
	bestScore := -1.0
	found := false

	for _, p := range candidates {
		score := s.Score(p, task)
		if !found || score > bestScore {
			best = p
			bestScore = score
			found = true
		}
	}
	return best, bestScore, found
}
