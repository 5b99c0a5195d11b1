package state_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gxo-labs/trialkit/internal/state"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string, rt interface{}) trial.Record {
	return trial.Record{
		trial.FieldPluginType: "flanker-trial",
		trial.FieldTrialID:    id,
		trial.FieldEndReason:  "response",
		trial.FieldRT:         rt,
	}
}

func TestMemoryResultStore_AppendAndRead(t *testing.T) {
	s := state.NewMemoryResultStore()
	require.NoError(t, s.Append(rec("a", 410.0)))
	require.NoError(t, s.Append(rec("b", nil)))

	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("b")
	require.True(t, ok)
	assert.Nil(t, got[trial.FieldRT])

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].TrialID())
	assert.Equal(t, "b", all[1].TrialID())

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestMemoryResultStore_RejectsBadRecords(t *testing.T) {
	s := state.NewMemoryResultStore()
	assert.Error(t, s.Append(trial.Record{trial.FieldPluginType: "sart-trial"}))
	require.NoError(t, s.Append(rec("a", 1.0)))
	assert.Error(t, s.Append(rec("a", 2.0)))
	assert.Equal(t, 1, s.Len())
}

func TestMemoryResultStore_ReadsAreCopies(t *testing.T) {
	s := state.NewMemoryResultStore()
	original := rec("a", 250.0)
	require.NoError(t, s.Append(original))

	original[trial.FieldRT] = 999.0
	got, _ := s.Get("a")
	got[trial.FieldEndReason] = "deadline"
	s.All()[0][trial.FieldTrialID] = "z"

	again, _ := s.Get("a")
	assert.Equal(t, 250.0, again[trial.FieldRT])
	assert.Equal(t, trial.EndResponse, again.EndReason())
	assert.Equal(t, "a", again.TrialID())
}

func TestMemoryResultStore_Reset(t *testing.T) {
	s := state.NewMemoryResultStore()
	require.NoError(t, s.Append(rec("a", 1.0)))
	require.NoError(t, s.Reset())
	assert.Zero(t, s.Len())
	require.NoError(t, s.Append(rec("a", 1.0)))
	assert.NoError(t, s.Close())
}

func TestMemoryResultStore_Concurrent(t *testing.T) {
	s := state.NewMemoryResultStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(rec(fmt.Sprintf("t-%d", i), float64(i)))
			_ = s.All()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}

func BenchmarkMemoryResultStore_All(b *testing.B) {
	s := state.NewMemoryResultStore()
	for i := 0; i < 200; i++ {
		_ = s.Append(rec(fmt.Sprintf("t-%d", i), float64(i)))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.All()
	}
}
