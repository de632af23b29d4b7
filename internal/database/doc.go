// Package database provides the SQLite-backed media index.
//
// One record per file path, keyed by the unique absolute path; re-scans
// overwrite in place via an atomic per-record upsert. Metadata columns are
// nullable and surface as pointer fields so consumers can distinguish
// "unknown" from zero.
//
// The database uses WAL mode so read queries observe a consistent snapshot
// while an extraction scan is writing, and a busy timeout to serialize
// concurrent writers. Records are never deleted by the store itself; only a
// re-scan that confirms a file is gone removes its row.
package database
