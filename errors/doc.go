// Package errors provides standardized error handling patterns for store components.
//
// # Overview
//
// The errors package implements a three-class error classification system:
// Transient (temporary, a caller may retry), Invalid (bad input or state, do
// not retry), and Fatal (unrecoverable, stop processing).
//
// The store core never retries on its own; classification exists so that
// callers and storage primitives can make informed retry decisions without
// error string matching. The system integrates with Go's standard error
// handling, supporting errors.Is(), errors.As(), and wrapping chains.
//
// # Quick Start
//
// Use standard error variables for common conditions:
//
//	if _, ok := s.index[id]; ok {
//	    return errors.ErrDuplicateID
//	}
//
// Wrap errors with context for debugging:
//
//	if err := storage.Add(ctx, item); err != nil {
//	    return errors.Wrap(err, "Store", "Add", "storage add")
//	}
//
// Check for domain conditions with the convenience helpers:
//
//	if errors.IsNotFound(err) {
//	    // id absent: create instead of update
//	}
//	if errors.IsDuplicateID(err) {
//	    // id collision: surface to the caller unchanged
//	}
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification.
//
// # Standard Error Variables
//
// Pre-defined variables cover the store's failure surface:
//
//   - Identity: ErrDuplicateID, ErrNotFound, ErrEmptyID
//   - Queries: ErrNotSerializable, ErrInvalidQuery
//   - Patches: ErrInvalidPatch, ErrInvalidPath
//   - Lifecycle: ErrReleased, ErrNoSource
//   - Transactions: ErrTransactionEmpty, ErrTransactionCommitted, ErrTransactionFailed
//
// Use these variables instead of creating custom error messages so that
// callers can branch with errors.Is across the whole store hierarchy.
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
