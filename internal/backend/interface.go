// Package backend builds the repository a process stores ledgers in.
package backend

import (
	"context"

	"gastos/internal/persistence"
)

// Backend is the repository handed to the ledger store. Ping backs
// /readyz.
type Backend interface {
	persistence.Repository
	Ping(ctx context.Context) error
}

// CleanupFunc releases what a backend holds open.
type CleanupFunc func() error

// BackendResult is a built backend. Cleanup is nil when nothing needs
// closing.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// Syncing is true when committed changes are published to AMQP.
	Syncing bool
}

// Factory builds backends from Config.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config selects a storage type and, optionally, change publishing.
type Config struct {
	Type         BackendType
	SQLiteDBPath string

	// Change publishing; disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a storage implementation, as written in DATA_BACKEND.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

// IsValid reports whether bt is a known storage type.
func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}
