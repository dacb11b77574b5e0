// Package cycle drives one full agent iteration through its fixed stages:
// lint fix, task identification, code generation, apply and test, docs
// update, and reflect or commit. Stage failures degrade to best-effort
// placeholder values; the controller never aborts a cycle mid-flight.
package cycle

import (
	"maps"
)

// Stage names one step of the cycle state machine.
type Stage string

const (
	StageLintFix         Stage = "lint_fix"
	StageIdentifyTask    Stage = "identify_task"
	StageGenerateCode    Stage = "generate_code"
	StageApplyAndTest    Stage = "apply_and_test"
	StageUpdateDocs      Stage = "update_docs"
	StageReflectOrCommit Stage = "reflect_or_commit"
)

// Outcome classifies how a cycle ended.
type Outcome string

const (
	// OutcomeCommitted means the work was committed and a pull request was
	// opened.
	OutcomeCommitted Outcome = "committed"

	// OutcomeDegraded means the cycle finished but exhausted its
	// regeneration budget with tests still failing.
	OutcomeDegraded Outcome = "degraded"
)

// LogEntry is the structured record accumulated across the stages of one
// cycle. Fields are only ever set or updated, never cleared, so a stage's
// view of the entry always contains everything earlier stages wrote. Extra
// holds stage-specific detail outside the fixed schema.
type LogEntry struct {
	Cycle      int               `json:"cycle"`
	Task       string            `json:"task,omitempty"`
	Repo       string            `json:"repo,omitempty"`
	Status     string            `json:"status,omitempty"`
	Timestamp  string            `json:"timestamp,omitempty"`
	LintOutput string            `json:"lint_output,omitempty"`
	AdaptFix   string            `json:"adapt_fix,omitempty"`
	TestResult string            `json:"test_result,omitempty"`
	DocUpdate  string            `json:"doc_update,omitempty"`
	Reflection string            `json:"reflection,omitempty"`
	PRURL      string            `json:"pr_url,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy. Stages write to a copy and the controller
// swaps it in, so a persisted snapshot is never mutated afterwards.
func (e LogEntry) Clone() LogEntry {
	out := e
	if e.Extra != nil {
		out.Extra = maps.Clone(e.Extra)
	}
	return out
}

// SetExtra records a stage-specific key outside the fixed schema.
func (e *LogEntry) SetExtra(key, value string) {
	if e.Extra == nil {
		e.Extra = make(map[string]string)
	}
	e.Extra[key] = value
}

// truncate bounds a string for log persistence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
