// Package lattice is an in-memory storage engine for a component-based
// entity model. Component data lives in fixed-capacity structure-of-arrays
// tables grouped by archetype (the set of component types an entity has), so
// iterating one component across many entities is sequential memory access.
// Entities are addressed through stable generational handles that survive
// every physical relocation of their data.
package lattice

import (
	"unsafe"

	"github.com/rotisserie/eris"

	"pkg.lattice.dev/lattice/component"
	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

// RegisterComponent makes the component type T storable in the world.
// Component types must be registered before they are used in any structural
// change or query.
func RegisterComponent[T types.Component](w *World, opts ...component.Option[T]) error {
	compMetadata, err := component.NewComponentMetadata[T](opts...)
	if err != nil {
		return err
	}
	return w.components.RegisterComponent(compMetadata)
}

func MustRegisterComponent[T types.Component](w *World, opts ...component.Option[T]) {
	err := RegisterComponent[T](w, opts...)
	if err != nil {
		panic(err)
	}
}

// AddComponentTo adds component T with the given initial value to the
// entity, moving its data to the wider archetype. Every component the entity
// already has keeps its value byte for byte.
func AddComponentTo[T types.Component](w *World, entity types.Entity, comp T) error {
	meta, err := w.components.GetComponentByName(comp.Name())
	if err != nil {
		return err
	}
	return w.entities.AddComponent(entity, meta, rawBytes(&comp, meta.Size()))
}

// RemoveComponentFrom removes component T from the entity, moving its data
// to the narrower archetype.
func RemoveComponentFrom[T types.Component](w *World, entity types.Entity) error {
	var zero T
	meta, err := w.components.GetComponentByName(zero.Name())
	if err != nil {
		return err
	}
	return w.entities.RemoveComponent(entity, meta.ID())
}

// GetComponent returns a pointer into the entity's current row for component
// T. The pointer is invalidated by any structural change to the entity;
// re-resolve instead of holding it across one.
func GetComponent[T types.Component](w *World, entity types.Entity) (*T, error) {
	var zero T
	meta, err := w.components.GetComponentByName(zero.Name())
	if err != nil {
		return nil, err
	}
	loc, err := w.entities.Resolve(entity)
	if err != nil {
		return nil, err
	}
	arch := w.registry.Archetype(loc.ArchID)
	if !arch.Signature().Contains(meta.ID()) {
		return nil, eris.Wrap(storage.ErrComponentNotOnEntity,
			"entity "+entity.String()+" does not have component "+meta.Name())
	}
	if meta.Size() == 0 {
		return new(T), nil
	}
	cell := arch.Table(loc.TableID).Component(meta.ID(), loc.Row)
	return (*T)(unsafe.Pointer(&cell[0])), nil
}

// SetComponent overwrites the entity's value for component T in place. Not a
// structural change: the entity does not move.
func SetComponent[T types.Component](w *World, entity types.Entity, comp *T) error {
	meta, err := w.components.GetComponentByName((*comp).Name())
	if err != nil {
		return err
	}
	loc, err := w.entities.Resolve(entity)
	if err != nil {
		return err
	}
	arch := w.registry.Archetype(loc.ArchID)
	if !arch.Signature().Contains(meta.ID()) {
		return eris.Wrap(storage.ErrComponentNotOnEntity,
			"entity "+entity.String()+" does not have component "+meta.Name())
	}
	arch.Table(loc.TableID).SetComponent(meta.ID(), loc.Row, rawBytes(comp, meta.Size()))
	return nil
}

// UpdateComponent reads the entity's value for component T, applies fn, and
// writes the result back.
func UpdateComponent[T types.Component](w *World, entity types.Entity, fn func(*T) *T) error {
	value, err := GetComponent[T](w, entity)
	if err != nil {
		return err
	}
	return SetComponent(w, entity, fn(value))
}

// rawBytes reinterprets a component value as its raw storage bytes. Valid
// because components are fixed-size value types relocated by plain copy.
func rawBytes[T any](value *T, size uintptr) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(value)), size)
}
