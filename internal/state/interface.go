package state

import "io"

// RunStore handles run-history persistence operations.
type RunStore interface {
	CreateRun(r *Run) error
	GetRun(id string) (*Run, error)
	UpdateRun(r *Run) error
	ListRuns(limit int) ([]Run, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for run-history persistence, so callers can
// work with any backend without depending on the SQLite implementation.
type Store interface {
	io.Closer
	Migrator
	RunStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store    = (*DB)(nil)
	_ Migrator = (*DB)(nil)
	_ RunStore = (*DB)(nil)
)
