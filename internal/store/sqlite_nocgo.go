//go:build !cgo
// +build !cgo

package store

import (
	_ "modernc.org/sqlite"
)

const sqliteDriver = "sqlite"

// sqliteDSN appends the connection pragmas in the modernc query form. The
// busy timeout makes a writer that loses a UNIQUE race wait for the winner's
// commit and surface the constraint violation, not SQLITE_BUSY.
func sqliteDSN(path string) string {
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)"
}
