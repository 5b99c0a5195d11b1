package state_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/trialkit/internal/logger"
	"github.com/gxo-labs/trialkit/internal/state"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

func newSQLiteStore(t *testing.T, path string) *state.SQLiteResultStore {
	t.Helper()
	s, err := state.NewSQLiteResultStore(path, logger.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteResultStore_AppendAndRead(t *testing.T) {
	s := newSQLiteStore(t, ":memory:")
	first := rec("a", 412.5)
	first["accuracy"] = true
	require.NoError(t, s.Append(first))
	require.NoError(t, s.Append(rec("b", nil)))

	assert.Equal(t, 2, s.Len())
	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 412.5, got[trial.FieldRT])
	assert.Equal(t, true, got["accuracy"])
	assert.Equal(t, "flanker-trial", got.PluginType())

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].TrialID())
	assert.Nil(t, all[1][trial.FieldRT])

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestSQLiteResultStore_RejectsBadRecords(t *testing.T) {
	s := newSQLiteStore(t, ":memory:")
	assert.Error(t, s.Append(trial.Record{}))
	require.NoError(t, s.Append(rec("a", 1.0)))
	assert.Error(t, s.Append(rec("a", 2.0)))
	assert.Equal(t, 1, s.Len())
}

func TestSQLiteResultStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	s, err := state.NewSQLiteResultStore(path, logger.NewDiscardLogger())
	require.NoError(t, err)
	require.NoError(t, s.Append(rec("a", 300.0)))
	require.NoError(t, s.Close())

	reopened := newSQLiteStore(t, path)
	assert.Equal(t, 1, reopened.Len())
	require.NoError(t, reopened.Reset())
	assert.Equal(t, 0, reopened.Len())
}

func TestSQLiteResultStore_RequiresPath(t *testing.T) {
	_, err := state.NewSQLiteResultStore("", logger.NewDiscardLogger())
	assert.Error(t, err)
}
