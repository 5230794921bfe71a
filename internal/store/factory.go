package store

import (
	"fmt"
	"strings"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open builds a store for the configured backend. path feeds the
// sqlite backend, dsn the postgres one.
func Open(backend, path, dsn string) (Store, error) {
	switch normalizeBackend(backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return NewSQLite(path)
	case BackendPostgres:
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (supported: %s, %s, %s)",
			backend, BackendMemory, BackendSQLite, BackendPostgres)
	}
}

func normalizeBackend(backend string) string {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendSQLite, "sqlite3":
		return BackendSQLite
	case BackendMemory, "mem":
		return BackendMemory
	case BackendPostgres, "postgresql", "pg":
		return BackendPostgres
	default:
		return strings.ToLower(strings.TrimSpace(backend))
	}
}
