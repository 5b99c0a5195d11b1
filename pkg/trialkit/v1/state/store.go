package state

import "github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"

// ResultReader defines read-only access to emitted result records.
// Implementations must be thread-safe and return copies.
type ResultReader interface {
	// Get returns the record emitted for trialID.
	Get(trialID string) (trial.Record, bool)
	// All returns every stored record in emission order.
	All() []trial.Record
	// Len returns the number of stored records.
	Len() int
}

// ResultStore is the sink the engine appends each finished trial's record to.
type ResultStore interface {
	ResultReader

	// Append stores a record. Records without a trial id are rejected.
	Append(record trial.Record) error
	// Reset discards every stored record.
	Reset() error
	// Close releases any resources held by the store.
	Close() error
}
