package domain

import "errors"

// Error taxonomy shared by the stores and the catalog service. Callers
// classify with errors.Is; batch operations catch and aggregate per-item
// errors instead of propagating them.
var (
	// ErrNotFound marks a query miss; stores resolve it as "absent",
	// the catalog never surfaces it to the operator.
	ErrNotFound = errors.New("record not found")

	// ErrStorageFull marks a persistence-quota failure, distinct from
	// generic I/O so the caller can prompt for cleanup instead of retry.
	ErrStorageFull = errors.New("storage quota exceeded")

	// ErrIO marks any other storage failure.
	ErrIO = errors.New("storage i/o failure")

	// ErrCorruptState marks an unparsable persisted document; the store
	// degrades to an empty collection after logging it.
	ErrCorruptState = errors.New("corrupt persisted state")

	// ErrSchemaMismatch aborts a whole table import when the header row
	// misses required columns.
	ErrSchemaMismatch = errors.New("import schema mismatch")

	// ErrImageDecode marks an undecodable upload payload.
	ErrImageDecode = errors.New("image decode failed")
)
