package testutil

import (
	"context"
	"sync"

	"github.com/roach88/querystate/internal/ir"
)

// MemoryJournal keeps cycle records in memory.
type MemoryJournal struct {
	mu      sync.Mutex
	records []ir.CycleRecord
}

// WriteCycle implements engine.Journal.
func (j *MemoryJournal) WriteCycle(_ context.Context, rec ir.CycleRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

// Records returns a copy of the journal.
func (j *MemoryJournal) Records() []ir.CycleRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ir.CycleRecord, len(j.records))
	copy(out, j.records)
	return out
}

// Outcomes returns each record's outcome, in order.
func (j *MemoryJournal) Outcomes() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.records))
	for i, r := range j.records {
		out[i] = r.Outcome
	}
	return out
}
