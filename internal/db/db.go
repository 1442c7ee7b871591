package db

import "database/sql"

// DB wraps the shared *sql.DB handle. The handle is created once at
// startup and passed explicitly into every component that needs it;
// nothing in the service reconstructs a connection per call.
type DB struct {
	*sql.DB
}
