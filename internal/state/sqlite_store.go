package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	gxo "github.com/gxo-labs/trialkit/pkg/trialkit/v1/state"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// SQLiteResultStore persists records to a SQLite database, one row per trial,
// so a session's data survives the process. The full record is kept as JSON
// next to a few indexed columns; JSON numbers read back as float64.
type SQLiteResultStore struct {
	db  *sql.DB
	log gxolog.Logger
}

// NewSQLiteResultStore opens (creating if needed) the database at path and
// migrates the records table. Use ":memory:" for a throwaway database.
func NewSQLiteResultStore(path string, log gxolog.Logger) (*SQLiteResultStore, error) {
	if path == "" {
		return nil, errors.New("sqlite result store requires a path")
	}
	if log == nil {
		panic("SQLiteResultStore requires a non-nil logger")
	}
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?mode=rwc&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite result store: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteResultStore{db: db, log: log.With("component", "SQLiteResultStore")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteResultStore) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS trial_records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			trial_id TEXT NOT NULL UNIQUE,
			plugin_type TEXT NOT NULL,
			end_reason TEXT NOT NULL,
			rt_ms REAL,
			record TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trial_records_plugin_type ON trial_records(plugin_type);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate sqlite result store: %w", err)
	}
	return nil
}

// Append inserts record. Duplicate trial ids are rejected by the UNIQUE constraint.
func (s *SQLiteResultStore) Append(record trial.Record) error {
	id := record.TrialID()
	if id == "" {
		return fmt.Errorf("cannot store record without %s", trial.FieldTrialID)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record for trial %s: %w", id, err)
	}
	var rt sql.NullFloat64
	if v, ok := record.RTMillis(); ok {
		rt = sql.NullFloat64{Float64: v, Valid: true}
	}
	_, err = s.db.Exec(
		`INSERT INTO trial_records (trial_id, plugin_type, end_reason, rt_ms, record) VALUES (?, ?, ?, ?, ?)`,
		id, record.PluginType(), string(record.EndReason()), rt, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert record for trial %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteResultStore) Get(trialID string) (trial.Record, bool) {
	var payload string
	err := s.db.QueryRow(`SELECT record FROM trial_records WHERE trial_id = ?`, trialID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		s.log.Errorf("Failed to read record for trial %s: %v", trialID, err)
		return nil, false
	}
	rec, err := decodeRecord(payload)
	if err != nil {
		s.log.Errorf("Failed to decode record for trial %s: %v", trialID, err)
		return nil, false
	}
	return rec, true
}

// All returns every record in insertion order. Rows that fail to decode are
// logged and skipped.
func (s *SQLiteResultStore) All() []trial.Record {
	rows, err := s.db.Query(`SELECT trial_id, record FROM trial_records ORDER BY seq`)
	if err != nil {
		s.log.Errorf("Failed to list records: %v", err)
		return nil
	}
	defer rows.Close()

	var out []trial.Record
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			s.log.Errorf("Failed to scan record row: %v", err)
			continue
		}
		rec, err := decodeRecord(payload)
		if err != nil {
			s.log.Warnf("Skipping undecodable record for trial %s: %v", id, err)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		s.log.Errorf("Failed to iterate records: %v", err)
	}
	return out
}

func (s *SQLiteResultStore) Len() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM trial_records`).Scan(&n); err != nil {
		s.log.Errorf("Failed to count records: %v", err)
		return 0
	}
	return n
}

// Reset deletes every stored record.
func (s *SQLiteResultStore) Reset() error {
	_, err := s.db.Exec(`DELETE FROM trial_records`)
	return err
}

// Close closes the database.
func (s *SQLiteResultStore) Close() error {
	return s.db.Close()
}

func decodeRecord(payload string) (trial.Record, error) {
	var rec trial.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

var _ gxo.ResultStore = (*SQLiteResultStore)(nil)
