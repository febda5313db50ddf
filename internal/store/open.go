package store

import (
	"context"
	"fmt"
)

// Store drivers selectable from configuration.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Open creates the store for the named driver. The DSN is ignored by the
// memory driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var dialect Dialect
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		dialect = SQLite
	case DriverPostgres:
		dialect = Postgres
	case DriverMySQL:
		dialect = MySQL
	default:
		return nil, fmt.Errorf("unknown store driver: %s", driver)
	}

	s, err := NewSQLStore(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	return s, nil
}
