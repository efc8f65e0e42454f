package lattice

import (
	"github.com/rotisserie/eris"

	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

// CommandBuffer queues structural changes so they can be applied after a
// query iteration finishes. Row views borrowed during iteration are
// invalidated by any structural change, so creating, destroying, or
// reshaping entities mid-pass is rejected by the world; queue those changes
// here and call Apply once the pass is done.
type CommandBuffer struct {
	world    *World
	commands []func() error
}

// Len returns the number of queued commands.
func (cb *CommandBuffer) Len() int {
	return len(cb.commands)
}

// Create queues the creation of a new entity. The callback, if not nil,
// receives the handle when the buffer is applied.
func (cb *CommandBuffer) Create(then func(types.Entity)) {
	cb.commands = append(cb.commands, func() error {
		entity, err := cb.world.Create()
		if err != nil {
			return err
		}
		if then != nil {
			then(entity)
		}
		return nil
	})
}

// Destroy queues the destruction of the entity.
func (cb *CommandBuffer) Destroy(entity types.Entity) {
	cb.commands = append(cb.commands, func() error {
		return cb.world.Destroy(entity)
	})
}

// DeferAddComponent queues adding component T to the entity.
func DeferAddComponent[T types.Component](cb *CommandBuffer, entity types.Entity, comp T) {
	cb.commands = append(cb.commands, func() error {
		return AddComponentTo(cb.world, entity, comp)
	})
}

// DeferRemoveComponent queues removing component T from the entity.
func DeferRemoveComponent[T types.Component](cb *CommandBuffer, entity types.Entity) {
	cb.commands = append(cb.commands, func() error {
		return RemoveComponentFrom[T](cb.world, entity)
	})
}

// Apply runs the queued commands in order and empties the buffer. Commands
// that fail with ErrStaleEntity are skipped: the entity died between queue
// time and apply time, which is exactly the race the buffer exists to make
// harmless. Any other failure aborts the apply and leaves the remaining
// commands queued.
func (cb *CommandBuffer) Apply() error {
	for len(cb.commands) > 0 {
		command := cb.commands[0]
		if err := command(); err != nil && !eris.Is(eris.Cause(err), storage.ErrStaleEntity) {
			return err
		}
		cb.commands = cb.commands[1:]
	}
	cb.commands = nil
	return nil
}
