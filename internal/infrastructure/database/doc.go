// Package database provides SQLite storage for the Hearthwatch device
// directory.
//
// It wraps database/sql with connection setup (WAL mode, busy timeout,
// single-writer pool), embedded migrations, and health checks. The actual
// directory queries live in internal/directory; this package only owns the
// connection and schema lifecycle.
package database
