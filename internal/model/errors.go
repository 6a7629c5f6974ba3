// Package model defines the core data types shared across the analysis pipeline:
// subscripts (dimensions and indices) and variable records.
package model

import "errors"

// Sentinel errors for the fatal error classes named in the analyzer design:
// subscript-resolution, reference-resolution and ordering failures all wrap one
// of these so callers can classify a failure with errors.Is.
var (
	// ErrCyclicDimension is returned when a dimension's value expands into itself
	// transitively through other dimension names.
	ErrCyclicDimension = errors.New("cyclic dimension definition")

	// ErrMapping is returned when a dimension mapping references an index that
	// does not exist in the target dimension.
	ErrMapping = errors.New("mapping references unknown index")

	// ErrSubscriptMismatch is returned when a reference's subscripts cannot bind
	// to the referencing variable's subscripts under the matching rules.
	ErrSubscriptMismatch = errors.New("subscript mismatch")

	// ErrDependencyCycle is returned when a dependency graph cannot be
	// topologically sorted.
	ErrDependencyCycle = errors.New("dependency cycle")

	// ErrDanglingReference is returned when a reference's canonical name binds
	// to no record and no external data series.
	ErrDanglingReference = errors.New("dangling reference")

	// ErrUnknownSpecVar is returned (non-fatally, collected as a diagnostic) when
	// an I/O spec variable does not resolve to any record.
	ErrUnknownSpecVar = errors.New("unknown spec variable")
)
