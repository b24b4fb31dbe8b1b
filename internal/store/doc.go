// Package store provides a generic record store over SQLite tables.
//
// A Store[T] implements get, list, create, update and remove for any
// record type described by a Schema[T]. Entity repositories embed a
// Store and add their own lookups with FindOne, FindMany and FindAll.
//
// Every call runs in its own transaction, opened on entry and committed
// or rolled back before the call returns.
//
// Reads and deletes treat missing rows differently. Get returns (nil, nil)
// for a malformed or unknown id, while Remove returns ErrNotFound.
//
// Update applies a Changes map of column to value. Columns not in the map
// are left alone, and the id column is always dropped from it. Field[T]
// lets JSON payloads tell an absent key from an explicit null.
package store
