package storage

import (
	"fmt"
	"sort"
	"strings"

	"pkg.lattice.dev/lattice/types"
)

const (
	bitsPerWord = 64
	maskWords   = 4

	// MaxComponentTypes bounds the component ID space: signature masks hold
	// IDs in [0, MaxComponentTypes). The component manager assigns IDs from 1,
	// so a world can register up to MaxComponentTypes-1 distinct types.
	MaxComponentTypes = maskWords * bitsPerWord
)

// SignatureKey is the canonical, comparable form of a signature. It is the
// signature's bitmask, so two signatures built from the same component set in
// any order produce the same key.
type SignatureKey [maskWords]uint64

// Signature is the canonical, order-independent set of component types an
// archetype stores. It keeps both a sorted ID slice (for iteration in column
// order) and a bitmask (for subset and intersection tests).
type Signature struct {
	ids  []types.ComponentID
	mask SignatureKey
}

// NewSignature builds a canonical signature from the given component IDs.
// Duplicates are collapsed. IDs at or above MaxComponentTypes panic; the
// component manager never hands those out.
func NewSignature(ids ...types.ComponentID) Signature {
	var s Signature
	for _, id := range ids {
		s = s.With(id)
	}
	return s
}

func maskWordBit(id types.ComponentID) (int, uint64) {
	if id < 0 || int(id) >= MaxComponentTypes {
		panic(fmt.Sprintf("component id %d out of range [0, %d)", id, MaxComponentTypes))
	}
	return int(id) / bitsPerWord, 1 << (uint64(id) % bitsPerWord)
}

// Key returns the comparable map key for this signature.
func (s Signature) Key() SignatureKey {
	return s.mask
}

// IDs returns the component IDs in ascending order. The returned slice is
// shared; callers must not mutate it.
func (s Signature) IDs() []types.ComponentID {
	return s.ids
}

func (s Signature) Len() int {
	return len(s.ids)
}

func (s Signature) Contains(id types.ComponentID) bool {
	word, bit := maskWordBit(id)
	return s.mask[word]&bit != 0
}

// With returns a copy of the signature with id added.
func (s Signature) With(id types.ComponentID) Signature {
	if s.Contains(id) {
		return s
	}
	word, bit := maskWordBit(id)
	ids := make([]types.ComponentID, 0, len(s.ids)+1)
	ids = append(ids, s.ids...)
	ids = append(ids, id)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	next := Signature{ids: ids, mask: s.mask}
	next.mask[word] |= bit
	return next
}

// Without returns a copy of the signature with id removed.
func (s Signature) Without(id types.ComponentID) Signature {
	if !s.Contains(id) {
		return s
	}
	word, bit := maskWordBit(id)
	ids := make([]types.ComponentID, 0, len(s.ids)-1)
	for _, existing := range s.ids {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	next := Signature{ids: ids, mask: s.mask}
	next.mask[word] &^= bit
	return next
}

// SubsetOf reports whether every component in s is also in other.
func (s Signature) SubsetOf(other Signature) bool {
	for i := 0; i < maskWords; i++ {
		if s.mask[i]&other.mask[i] != s.mask[i] {
			return false
		}
	}
	return true
}

// StrictSubsetOf reports whether s is a subset of other and not equal to it.
func (s Signature) StrictSubsetOf(other Signature) bool {
	return s.mask != other.mask && s.SubsetOf(other)
}

// Intersects reports whether s and other share any component.
func (s Signature) Intersects(other Signature) bool {
	for i := 0; i < maskWords; i++ {
		if s.mask[i]&other.mask[i] != 0 {
			return true
		}
	}
	return false
}

func (s Signature) Equal(other Signature) bool {
	return s.mask == other.mask
}

func (s Signature) String() string {
	parts := make([]string, len(s.ids))
	for i, id := range s.ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
