package sift

import "errors"

var (
	// ErrUnknownField is returned when a condition references a field or
	// relation that does not exist on the current entity type.
	ErrUnknownField = errors.New("sift: unknown field or relation")

	// ErrUnknownEntity is returned when a subject type is not registered
	// in the schema.
	ErrUnknownEntity = errors.New("sift: unknown entity type")

	// ErrInvalidCondition is returned when a condition value is malformed,
	// e.g. a relation key mapping to a scalar.
	ErrInvalidCondition = errors.New("sift: invalid condition")

	// ErrConflictingScopes is returned when a pre-built query scope would
	// have to be merged with another non-empty condition.
	ErrConflictingScopes = errors.New("sift: cannot merge pre-built scope with other conditions")

	// ErrSanitizerRequired is returned when a rule carries a raw fragment
	// or unmergeable condition but no sanitizer is configured.
	ErrSanitizerRequired = errors.New("sift: sanitizer required for unmergeable rules")

	// ErrDepthExceeded is returned when a condition tree nests relations
	// deeper than the configured maximum.
	ErrDepthExceeded = errors.New("sift: condition depth exceeded")
)
