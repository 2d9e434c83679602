package database

import (
	"errors"
	"fmt"
)

// ErrBackupUnsupported is returned for drivers without an online snapshot statement.
var ErrBackupUnsupported = errors.New("backup is only supported for sqlite3")

// SnapshotTo writes a consistent copy of a SQLite database to path. path must not exist yet.
func SnapshotTo(db DBTX, path string) error {
	if db.DriverName() != "sqlite3" {
		return ErrBackupUnsupported
	}
	if _, err := db.Exec(`VACUUM INTO ?`, path); err != nil {
		return fmt.Errorf("SnapshotTo (%s) failed: %w", path, err)
	}
	return nil
}
