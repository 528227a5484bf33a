// Package store persists session state between shell runs.
//
// Command history lives in a bbolt database keyed by sequence number.
// Server bookmarks live in SQLite when a database path is configured and in
// memory otherwise.
package store
