package types

import "errors"

// Error taxonomy of the subsystem. All public operations surface one of
// these sentinels, possibly wrapped with call-site context.
var (
	// ErrDetachedAccessor is returned by every operation on a ListView
	// whose row or column has been destroyed.
	ErrDetachedAccessor = errors.New("accessor is detached")

	// ErrIndexOutOfRange is returned when a list or row index exceeds the
	// current size.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvariantViolation reports a reciprocity or count mismatch
	// detected at runtime. It indicates a programming error and is fatal
	// to the current mutation.
	ErrInvariantViolation = errors.New("link invariant violation")

	// ErrCrossTableLink is returned when removing a table that is the
	// target of a link column in another table. The group is unchanged.
	ErrCrossTableLink = errors.New("table is the target of a cross-table link")

	// ErrIllegalCombination is returned for operations forbidden by the
	// schema.
	ErrIllegalCombination = errors.New("illegal combination")

	// ErrAllocationFailure is returned when the allocator could not
	// satisfy a request. The mutation leaves the store unchanged.
	ErrAllocationFailure = errors.New("allocation failure")

	// ErrTableNotFound is returned when a table is looked up by a name
	// the group does not contain.
	ErrTableNotFound = errors.New("table not found")
)
