// Package store persists classes, students and their records.
//
// Repository is implemented by Memory, used by tests and single-process
// runs, and by SQL, backed by SQLite (modernc.org/sqlite) or PostgreSQL
// (pgx). Both stores assign ids and timestamps on write and treat each
// record type's natural key as unique:
//
//	CASAS test       (student, type, date, form)
//	unit test        (student, test name, date)
//	attendance       (student, month)
//	tutoring session (student, date)
//
// Saving a record whose natural key already exists updates it in place, so
// re-importing a file is idempotent.
//
// Snapshot, Merge and Restore reconcile two copies of the data by last write
// wins. SyncBuffer and FileBackup debounce snapshot writes to disk.
package store
