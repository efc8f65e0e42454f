package storage

import "github.com/rotisserie/eris"

var (
	// ErrStaleEntity is returned when an entity handle's generation no longer
	// matches the stored generation for its index. The handle is dead; the
	// caller should discard it.
	ErrStaleEntity = eris.New("entity handle is stale")

	// ErrComponentAlreadyOnEntity is returned when adding a component the
	// entity already has.
	ErrComponentAlreadyOnEntity = eris.New("component already on entity")

	// ErrComponentNotOnEntity is returned when removing a component the
	// entity does not have.
	ErrComponentNotOnEntity = eris.New("component not on entity")

	// ErrComponentNotInArchetype is returned when an initial component value
	// names a component outside the destination signature.
	ErrComponentNotInArchetype = eris.New("component not in archetype signature")

	// ErrIterationInProgress is returned when a structural change is
	// attempted while a query iteration holds borrowed views into storage.
	// Queue the change on a command buffer and apply it after the pass.
	ErrIterationInProgress = eris.New("structural change during query iteration")

	// errTableFull is the internal signal a full table reports to its owning
	// archetype. The archetype always recovers by allocating a new table, so
	// this never escapes the storage package.
	errTableFull = eris.New("table is full")
)
