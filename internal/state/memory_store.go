package state

import (
	"fmt"
	"sync"

	gxo "github.com/gxo-labs/trialkit/pkg/trialkit/v1/state"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// MemoryResultStore implements ResultStore with a slice plus an index by
// trial id, guarded by a sync.RWMutex. Every read returns copies so callers
// can never mutate an emitted record.
type MemoryResultStore struct {
	mu      sync.RWMutex
	records []trial.Record
	byID    map[string]int
}

// NewMemoryResultStore creates an empty store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{byID: make(map[string]int)}
}

// Append stores a copy of record. A record without a trial id, or with an id
// that was already appended, is rejected.
func (s *MemoryResultStore) Append(record trial.Record) error {
	id := record.TrialID()
	if id == "" {
		return fmt.Errorf("cannot store record without %s", trial.FieldTrialID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[id]; dup {
		return fmt.Errorf("record for trial %s already stored", id)
	}
	s.byID[id] = len(s.records)
	s.records = append(s.records, record.Clone())
	return nil
}

// Get returns a copy of the record for trialID.
func (s *MemoryResultStore) Get(trialID string) (trial.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[trialID]
	if !ok {
		return nil, false
	}
	return s.records[i].Clone(), true
}

// All returns copies of every record in emission order.
func (s *MemoryResultStore) All() []trial.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]trial.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

func (s *MemoryResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Reset discards every stored record.
func (s *MemoryResultStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.byID = make(map[string]int)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryResultStore) Close() error {
	return nil
}

var _ gxo.ResultStore = (*MemoryResultStore)(nil)
