// Package alloc provides the slab allocator backing the per-cell integer
// stores of the link graph. Allocations are addressed by Ref, an opaque
// 64-bit handle with the low bit always clear so that a Ref can share a cell
// word with the tagged-inline encoding.
//
// Implements: docs/ARCHITECTURE § Allocator.
package alloc

import (
	"fmt"
	"sort"

	"github.com/starfinanz/realm-core/pkg/types"
)

// Ref addresses one allocation. The zero Ref is the null reference.
type Ref uint64

// refStride keeps refs even and leaves headroom so that restored snapshots
// can reuse their original ref values.
const refStride = 8

// Allocator owns a set of word slabs addressed by Ref. It is not safe for
// concurrent use; the subsystem is single-threaded by contract.
type Allocator struct {
	slots  map[Ref][]uint64
	frozen map[Ref]bool
	next   Ref
	limit  int // 0 means unlimited
}

// New creates an empty allocator with no allocation limit.
func New() *Allocator {
	return NewWithLimit(0)
}

// NewWithLimit creates an allocator that fails with ErrAllocationFailure
// once it holds limit live slots. A limit of 0 means unlimited.
func NewWithLimit(limit int) *Allocator {
	return &Allocator{
		slots:  make(map[Ref][]uint64),
		frozen: make(map[Ref]bool),
		next:   refStride,
		limit:  limit,
	}
}

// Alloc creates an empty writable slot and returns its ref.
func (a *Allocator) Alloc() (Ref, error) {
	if a.limit > 0 && len(a.slots) >= a.limit {
		return 0, fmt.Errorf("allocating slot: %w", types.ErrAllocationFailure)
	}
	ref := a.next
	a.next += refStride
	a.slots[ref] = nil
	return ref, nil
}

// Free releases the slot at ref. Freeing the null ref is a no-op.
func (a *Allocator) Free(ref Ref) {
	if ref == 0 {
		return
	}
	delete(a.slots, ref)
	delete(a.frozen, ref)
}

// Words translates ref into its current word slice.
func (a *Allocator) Words(ref Ref) ([]uint64, error) {
	w, ok := a.slots[ref]
	if !ok {
		return nil, fmt.Errorf("translating ref %#x: %w", uint64(ref), types.ErrInvariantViolation)
	}
	return w, nil
}

// SetWords replaces the contents of the slot at ref. Writing a frozen slot
// is an invariant violation; callers must clone first.
func (a *Allocator) SetWords(ref Ref, words []uint64) error {
	if _, ok := a.slots[ref]; !ok {
		return fmt.Errorf("writing ref %#x: %w", uint64(ref), types.ErrInvariantViolation)
	}
	if a.frozen[ref] {
		return fmt.Errorf("writing frozen ref %#x: %w", uint64(ref), types.ErrInvariantViolation)
	}
	a.slots[ref] = words
	return nil
}

// IsReadOnly reports whether the slot at ref belongs to a committed image
// and must be cloned before mutation.
func (a *Allocator) IsReadOnly(ref Ref) bool {
	return a.frozen[ref]
}

// Clone copies the slot at ref into a fresh writable slot.
func (a *Allocator) Clone(ref Ref) (Ref, error) {
	src, err := a.Words(ref)
	if err != nil {
		return 0, err
	}
	dst, err := a.Alloc()
	if err != nil {
		return 0, err
	}
	a.slots[dst] = append([]uint64(nil), src...)
	return dst, nil
}

// Restore installs a slot at an explicit ref, as read from a snapshot, and
// marks it read-only. The internal ref counter is advanced past it so later
// allocations cannot collide.
func (a *Allocator) Restore(ref Ref, words []uint64) error {
	if ref == 0 || ref%refStride != 0 {
		return fmt.Errorf("restoring ref %#x: %w", uint64(ref), types.ErrInvariantViolation)
	}
	if _, ok := a.slots[ref]; ok {
		return fmt.Errorf("restoring duplicate ref %#x: %w", uint64(ref), types.ErrInvariantViolation)
	}
	a.slots[ref] = append([]uint64(nil), words...)
	a.frozen[ref] = true
	if ref >= a.next {
		a.next = ref + refStride
	}
	return nil
}

// Live returns the number of live slots.
func (a *Allocator) Live() int {
	return len(a.slots)
}

// Refs returns all live refs in ascending order. Used by the snapshot
// writer to emit stores deterministically.
func (a *Allocator) Refs() []Ref {
	refs := make([]Ref, 0, len(a.slots))
	for r := range a.slots {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}
