// Package store owns the single database session a crosscheck run reads from.
//
// A run opens exactly one connection and keeps it pinned until Close. The
// pool is capped at one open connection and every query goes through the
// pinned *sql.Conn, so all checks observe the same session (and, for
// SQLite ":memory:", the same database).
//
// # Drivers
//
//   - sqlite3: github.com/mattn/go-sqlite3
//   - postgres: github.com/lib/pq
//
// # Identifiers
//
// Table and column names cannot be bound as parameters. They are validated
// against [A-Za-z_][A-Za-z0-9_]* before being interpolated; values are always
// bound with driver placeholders.
package store
