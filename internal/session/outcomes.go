package session

import "sync"

// outcomeLog keeps the most recent mitigation outcomes.
type outcomeLog struct {
	mu    sync.Mutex
	items []Outcome
	max   int
}

func newOutcomeLog(max int) *outcomeLog {
	return &outcomeLog{items: make([]Outcome, 0, max), max: max}
}

func (l *outcomeLog) add(o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, o)
	if len(l.items) > l.max {
		l.items = l.items[len(l.items)-l.max:]
	}
}

func (l *outcomeLog) recent(limit int) []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || len(l.items) == 0 {
		return []Outcome{}
	}
	start := 0
	if len(l.items) > limit {
		start = len(l.items) - limit
	}
	result := make([]Outcome, len(l.items)-start)
	copy(result, l.items[start:])
	return result
}
