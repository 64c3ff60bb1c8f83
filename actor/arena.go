package actor

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrSameHandle is raised when both sides of a pair access name the same body.
	ErrSameHandle = errors.New("actor: pair access with the same handle twice")

	// ErrStaleHandle is raised for handles of removed bodies or from another arena.
	ErrStaleHandle = errors.New("actor: stale or unknown body handle")
)

// Handle is a stable reference to a body stored in an Arena.
// The zero Handle never refers to a body.
type Handle struct {
	index      uint32
	generation uint32
}

func (h Handle) Index() int {
	return int(h.index)
}

func (h Handle) IsZero() bool {
	return h.generation == 0
}

// Less orders handles by slot, which is insertion order until slots are reused
func (h Handle) Less(other Handle) bool {
	if h.index != other.index {
		return h.index < other.index
	}
	return h.generation < other.generation
}

func (h Handle) String() string {
	return fmt.Sprintf("body#%d.%d", h.index, h.generation)
}

type slot struct {
	body       *RigidBody
	generation uint32
}

// Arena owns the bodies of a simulation. Bodies are stored by pointer, so the
// body behind a handle never moves while it is alive; removing a body frees its
// slot without touching other handles.
type Arena struct {
	slots []slot
	free  []uint32
	count int
}

func NewArena() *Arena {
	return &Arena{}
}

// Add stores body and returns its handle
func (a *Arena) Add(body *RigidBody) Handle {
	if body == nil {
		panic("actor: Arena.Add(nil)")
	}

	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot{generation: 1})
	}

	a.slots[index].body = body
	a.count++

	return Handle{index: index, generation: a.slots[index].generation}
}

// Remove drops the body behind h. It reports whether h was alive.
func (a *Arena) Remove(h Handle) bool {
	if !a.Contains(h) {
		return false
	}

	s := &a.slots[h.index]
	s.body = nil
	s.generation++
	a.free = append(a.free, h.index)
	a.count--

	return true
}

// Contains reports whether h refers to a live body
func (a *Arena) Contains(h Handle) bool {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return false
	}
	s := a.slots[h.index]
	return s.body != nil && s.generation == h.generation
}

// Get returns the body behind h. It panics with ErrStaleHandle if h is not alive.
func (a *Arena) Get(h Handle) *RigidBody {
	if !a.Contains(h) {
		panic(fmt.Errorf("%w: %v", ErrStaleHandle, h))
	}
	return a.slots[h.index].body
}

// Pair returns the two distinct bodies behind h1 and h2.
// It panics with ErrSameHandle if h1 == h2, since both results are mutated by callers.
func (a *Arena) Pair(h1, h2 Handle) (*RigidBody, *RigidBody) {
	if h1.index == h2.index {
		panic(fmt.Errorf("%w: %v", ErrSameHandle, h1))
	}
	return a.Get(h1), a.Get(h2)
}

// All iterates the live bodies in slot order
func (a *Arena) All() iter.Seq2[Handle, *RigidBody] {
	return func(yield func(Handle, *RigidBody) bool) {
		for i, s := range a.slots {
			if s.body == nil {
				continue
			}
			if !yield(Handle{index: uint32(i), generation: s.generation}, s.body) {
				return
			}
		}
	}
}

// Handles returns the live handles in slot order
func (a *Arena) Handles() []Handle {
	handles := make([]Handle, 0, a.count)
	for h := range a.All() {
		handles = append(handles, h)
	}
	return handles
}

func (a *Arena) Len() int {
	return a.count
}

// Clear removes every body. Handles issued before Clear stay invalid afterwards.
func (a *Arena) Clear() {
	a.free = a.free[:0]
	for i := len(a.slots) - 1; i >= 0; i-- {
		s := &a.slots[i]
		if s.body != nil {
			s.body = nil
			s.generation++
		}
		a.free = append(a.free, uint32(i))
	}
	a.count = 0
}
