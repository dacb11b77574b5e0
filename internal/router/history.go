package router

import (
	"sync"
	"time"
)

// PerformanceRecord is one observed outcome of a completion call. Success is
// 1.0 for a completed call, 0.0 for a failure.
type PerformanceRecord struct {
	Model     string
	TaskType  TaskType
	Success   float64
	Latency   time.Duration
	Cost      float64
	Timestamp time.Time
}

// recentWindow is how many recent records per model feed the scoring bonus.
const recentWindow = 10

// History is an append-only, size-bounded record of completion outcomes.
// Appends are atomic with respect to concurrent readers.
type History struct {
	mu      sync.RWMutex
	limit   int
	records []PerformanceRecord
}

// NewHistory returns a history that keeps at most limit records, discarding
// the oldest on overflow.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Append records one outcome, pruning the oldest entries past the limit.
func (h *History) Append(rec PerformanceRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if len(h.records) > h.limit {
		h.records = h.records[len(h.records)-h.limit:]
	}
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Bonus returns the historical adjustment for a model: the mean success of
// its last ten records, centered on 0.5 and scaled to a tenth. A model with
// no history gets zero. The result lies in [-0.05, 0.05].
func (h *History) Bonus(model string) float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var sum float64
	var count int
	for i := len(h.records) - 1; i >= 0 && count < recentWindow; i-- {
		if h.records[i].Model != model {
			continue
		}
		sum += h.records[i].Success
		count++
	}
	if count == 0 {
		return 0
	}
	return (sum/float64(count) - 0.5) * 0.1
}

// Recent returns up to n most recent records, newest last.
func (h *History) Recent(n int) []PerformanceRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > len(h.records) {
		n = len(h.records)
	}
	out := make([]PerformanceRecord, n)
	copy(out, h.records[len(h.records)-n:])
	return out
}
