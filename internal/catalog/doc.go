// Package catalog is the SQLite-backed dataset index used as an alternative
// enumeration source. Rows map a product and item identifier to its
// acquisition time so a signature's window becomes one range query.
//
// The store applies WAL journaling and a busy timeout, retries writes on
// SQLITE_BUSY with capped exponential backoff, and refuses to open a
// database whose schema_version differs from the compiled one.
package catalog
