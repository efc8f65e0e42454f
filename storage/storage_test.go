package storage_test

import (
	"testing"
	"unsafe"

	"pkg.lattice.dev/lattice/assert"
	"pkg.lattice.dev/lattice/component"
	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

type Position struct {
	X, Y, Z float64
}

func (Position) Name() string { return "position" }

type Velocity struct {
	DX, DY float64
}

func (Velocity) Name() string { return "velocity" }

type Tag struct{}

func (Tag) Name() string { return "tag" }

// newMeta builds component metadata with the given ID already assigned.
func newMeta[T types.Component](t *testing.T, id types.ComponentID) types.ComponentMetadata {
	t.Helper()
	meta, err := component.NewComponentMetadata[T]()
	assert.NilError(t, err)
	assert.NilError(t, meta.SetID(id))
	return meta
}

// bytesOf exposes a component value's raw storage form, the way the public
// API hands initial values to the storage layer.
func bytesOf[T any](value *T) []byte {
	size := unsafe.Sizeof(*value)
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(value)), size)
}

// valueAt reinterprets a raw cell as a component value.
func valueAt[T any](cell []byte) T {
	return *(*T)(unsafe.Pointer(&cell[0]))
}

func entity(index, generation uint32) types.Entity {
	return types.Entity{Index: index, Generation: generation}
}

func testSignature(comps ...types.ComponentMetadata) storage.Signature {
	ids := make([]types.ComponentID, len(comps))
	for i, comp := range comps {
		ids[i] = comp.ID()
	}
	return storage.NewSignature(ids...)
}
