// Package intcol implements the ordered integer store backing link-list and
// backlink cells: a mutable sequence of 64-bit words rooted at an allocator
// ref, with an optional parent binding that persists the root address back
// into the owning cell when the root moves.
//
// Implements: docs/ARCHITECTURE § Ordered Int Store.
package intcol

import (
	"fmt"

	"github.com/starfinanz/realm-core/internal/alloc"
	"github.com/starfinanz/realm-core/pkg/types"
)

// ParentFunc persists a new root ref into the parent cell. It is invoked
// when a mutation has to abandon a read-only root (copy-on-write after a
// snapshot load).
type ParentFunc func(ref alloc.Ref) error

// Column is an ordered sequence of 64-bit words owned by a single cell.
// Instances are cheap handles; they may be created transiently around a
// single operation, as the backlink store does, or held long-term by a list
// view.
type Column struct {
	alloc  *alloc.Allocator
	ref    alloc.Ref
	parent ParentFunc
}

// Create allocates a store holding the initial words (empty when none are
// given) and returns a handle to it.
func Create(a *alloc.Allocator, initial ...uint64) (*Column, error) {
	ref, err := a.Alloc()
	if err != nil {
		return nil, err
	}
	if len(initial) > 0 {
		if err := a.SetWords(ref, append([]uint64(nil), initial...)); err != nil {
			return nil, err
		}
	}
	return &Column{alloc: a, ref: ref}, nil
}

// FromRef attaches a handle to the store rooted at ref.
func FromRef(a *alloc.Allocator, ref alloc.Ref) *Column {
	return &Column{alloc: a, ref: ref}
}

// Ref returns the current root ref.
func (c *Column) Ref() alloc.Ref {
	return c.ref
}

// SetParent binds the parent cell. See ParentFunc.
func (c *Column) SetParent(parent ParentFunc) {
	c.parent = parent
}

// Size returns the number of words in the store.
func (c *Column) Size() int {
	words, err := c.alloc.Words(c.ref)
	if err != nil {
		return 0
	}
	return len(words)
}

// Get returns the word at position i.
func (c *Column) Get(i int) (uint64, error) {
	words, err := c.alloc.Words(c.ref)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(words) {
		return 0, fmt.Errorf("int store get %d of %d: %w", i, len(words), types.ErrIndexOutOfRange)
	}
	return words[i], nil
}

// Set overwrites the word at position i.
func (c *Column) Set(i int, v uint64) error {
	words, err := c.writable()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(words) {
		return fmt.Errorf("int store set %d of %d: %w", i, len(words), types.ErrIndexOutOfRange)
	}
	words[i] = v
	return c.alloc.SetWords(c.ref, words)
}

// Insert shifts in v at position i.
func (c *Column) Insert(i int, v uint64) error {
	words, err := c.writable()
	if err != nil {
		return err
	}
	if i < 0 || i > len(words) {
		return fmt.Errorf("int store insert %d of %d: %w", i, len(words), types.ErrIndexOutOfRange)
	}
	words = append(words, 0)
	copy(words[i+1:], words[i:])
	words[i] = v
	return c.alloc.SetWords(c.ref, words)
}

// Add appends v.
func (c *Column) Add(v uint64) error {
	words, err := c.writable()
	if err != nil {
		return err
	}
	return c.alloc.SetWords(c.ref, append(words, v))
}

// Erase removes the word at position i.
func (c *Column) Erase(i int) error {
	words, err := c.writable()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(words) {
		return fmt.Errorf("int store erase %d of %d: %w", i, len(words), types.ErrIndexOutOfRange)
	}
	words = append(words[:i], words[i+1:]...)
	return c.alloc.SetWords(c.ref, words)
}

// FindFirst returns the position of the first word equal to v, or -1.
func (c *Column) FindFirst(v uint64) int {
	words, err := c.alloc.Words(c.ref)
	if err != nil {
		return -1
	}
	for i, w := range words {
		if w == v {
			return i
		}
	}
	return -1
}

// Destroy frees the backing slot. The handle must not be used afterwards;
// the caller is responsible for resetting the parent cell.
func (c *Column) Destroy() {
	c.alloc.Free(c.ref)
	c.ref = 0
}

// writable returns the word slice after ensuring the root is mutable. A
// read-only root (from a loaded snapshot) is cloned and the parent cell is
// updated with the new ref.
func (c *Column) writable() ([]uint64, error) {
	if c.alloc.IsReadOnly(c.ref) {
		clone, err := c.alloc.Clone(c.ref)
		if err != nil {
			return nil, err
		}
		if c.parent != nil {
			if err := c.parent(clone); err != nil {
				return nil, err
			}
		}
		old := c.ref
		c.ref = clone
		c.alloc.Free(old)
	}
	return c.alloc.Words(c.ref)
}
