package router

import (
	"strings"
)

// TaskType classifies a prompt for model selection and fallback routing.
type TaskType string

const (
	TaskCoding       TaskType = "coding"
	TaskMathematical TaskType = "mathematical"
	TaskCreative     TaskType = "creative"
	TaskReasoning    TaskType = "reasoning"
	TaskMultimodal   TaskType = "multimodal"
	TaskFast         TaskType = "fast"
	TaskGeneral      TaskType = "general"

	// TaskAuto asks Analyze to classify the prompt itself.
	TaskAuto TaskType = "auto"
)

// TaskTypes lists every concrete task type, in routing order.
func TaskTypes() []TaskType {
	return []TaskType{
		TaskCoding, TaskMathematical, TaskCreative, TaskReasoning,
		TaskMultimodal, TaskFast, TaskGeneral,
	}
}

// TaskAnalysis is the derived profile of one prompt. All weights are in
// [0,1]. It is consumed immediately by the scorer and not persisted.
type TaskAnalysis struct {
	TaskType         TaskType
	Complexity       float64
	CreativityNeeded float64
	ReasoningNeeded  float64
	SpeedPriority    float64
	MultimodalNeeded bool
	EstimatedTokens  int
}

var taskTypeKeywords = []struct {
	taskType TaskType
	keywords []string
}{
	{TaskCoding, []string{"code", "function", "debug", "programming", "script"}},
	{TaskMathematical, []string{"math", "calculate", "solve", "equation", "algorithm"}},
	{TaskCreative, []string{"create", "write", "story", "poem", "creative", "imagine"}},
	{TaskReasoning, []string{"analyze", "reason", "explain", "why", "how", "complex"}},
	{TaskMultimodal, []string{"image", "video", "visual", "picture", "diagram"}},
	{TaskFast, []string{"quick", "fast", "simple", "brief", "summary"}},
}

var complexityKeywords = []string{"algorithm", "architecture", "optimization", "analysis", "synthesis"}

var multimodalKeywords = []string{"image", "picture", "photo", "video", "visual", "diagram", "chart", "graph"}

// Analyze derives a TaskAnalysis for the prompt. When hint is TaskAuto the
// task type is classified by keyword matching; otherwise the hint is used
// as-is and only the numeric weights are derived from the prompt.
func Analyze(prompt string, hint TaskType) TaskAnalysis {
	lower := strings.ToLower(prompt)

	taskType := hint
	if taskType == TaskAuto || taskType == "" {
		taskType = detectTaskType(lower)
	}

	words := len(strings.Fields(prompt))

	return TaskAnalysis{
		TaskType:         taskType,
		Complexity:       estimateComplexity(prompt, lower),
		CreativityNeeded: estimateCreativityNeed(lower, taskType),
		ReasoningNeeded:  estimateReasoningNeed(lower, taskType),
		SpeedPriority:    estimateSpeedPriority(lower, taskType),
		MultimodalNeeded: containsAny(lower, multimodalKeywords),
		EstimatedTokens:  int(float64(words) * 1.3),
	}
}

func detectTaskType(lower string) TaskType {
	for _, entry := range taskTypeKeywords {
		if containsAny(lower, entry.keywords) {
			return entry.taskType
		}
	}
	return TaskGeneral
}

// estimateComplexity averages three factors: prompt length against a 2000
// character ceiling, density of structural vocabulary, and question count
// against a ceiling of five.
func estimateComplexity(prompt, lower string) float64 {
	lengthFactor := min(float64(len(prompt))/2000, 1.0)

	complexCount := 0
	for _, w := range complexityKeywords {
		if strings.Contains(lower, w) {
			complexCount++
		}
	}
	vocabFactor := min(float64(complexCount)/float64(len(complexityKeywords)), 1.0)

	questionFactor := min(float64(strings.Count(prompt, "?"))/5, 1.0)

	return (lengthFactor + vocabFactor + questionFactor) / 3
}

func estimateCreativityNeed(lower string, taskType TaskType) float64 {
	switch taskType {
	case TaskCreative:
		return 0.9
	case TaskCoding, TaskMathematical:
		return 0.3
	}
	if containsAny(lower, []string{"creative", "innovative", "original", "unique"}) {
		return 0.8
	}
	return 0.5
}

func estimateReasoningNeed(lower string, taskType TaskType) float64 {
	switch taskType {
	case TaskMathematical, TaskReasoning, TaskCoding:
		return 0.9
	}
	if containsAny(lower, []string{"why", "how", "explain", "analyze", "logic"}) {
		return 0.8
	}
	return 0.6
}

func estimateSpeedPriority(lower string, taskType TaskType) float64 {
	if taskType == TaskFast {
		return 0.9
	}
	if containsAny(lower, []string{"quick", "fast", "urgent", "now", "immediately"}) {
		return 0.8
	}
	if containsAny(lower, []string{"detailed", "thorough", "comprehensive", "deep"}) {
		return 0.2
	}
	return 0.5
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
