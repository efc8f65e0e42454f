package query

import (
	"fmt"
	"unsafe"

	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

// Row is the borrowed per-entity view a query yields during iteration. It
// addresses one occupied table row and is valid only for the current
// iteration step; never retain one past the callback that received it.
type Row struct {
	query     *Query
	archetype *storage.Archetype
	table     *storage.Table
	row       types.Row
}

// Entity returns the stable handle stored in the row's identity column. The
// identity column exists precisely so a query can yield a stable handle
// without a second indirection through the entity provider.
func (r *Row) Entity() types.Entity {
	return r.table.Entity(r.row)
}

// Get returns a direct reference into T's column at this row. Calling it for
// a component absent from the row's archetype is a matching bug or a missing
// Has check, and panics. Mutating through the pointer is the sanctioned
// in-place write path for components the query declared write intent on.
func Get[T types.Component](r *Row) *T {
	var zero T
	comp, err := r.query.components.GetComponentByName(zero.Name())
	if err != nil {
		panic(fmt.Sprintf("lattice: component %q is not registered", zero.Name()))
	}
	if !r.archetype.Signature().Contains(comp.ID()) {
		panic(fmt.Sprintf("lattice: component %q absent from row's archetype; guard optional access with Has", zero.Name()))
	}
	if comp.Size() == 0 {
		return new(T)
	}
	cell := r.table.Component(comp.ID(), r.row)
	return (*T)(unsafe.Pointer(&cell[0]))
}

// Has reports whether the row's archetype carries component T. Only useful
// for the query's optional components; required ones are always present and
// excluded ones never are.
func Has[T types.Component](r *Row) bool {
	var zero T
	comp, err := r.query.components.GetComponentByName(zero.Name())
	if err != nil {
		panic(fmt.Sprintf("lattice: component %q is not registered", zero.Name()))
	}
	return r.archetype.Signature().Contains(comp.ID())
}
