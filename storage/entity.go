package storage

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	ecslog "pkg.lattice.dev/lattice/log"
	"pkg.lattice.dev/lattice/statsd"
	"pkg.lattice.dev/lattice/types"
)

// entityRecord is the per-index slot of the identity table: where the
// entity's data currently lives and which generation of this index is alive.
type entityRecord struct {
	loc        Location
	generation uint32
}

// EntityProvider owns the stable-identity table, a generational slot map
// from entity index to the entity's current physical locator. It is the only
// sanctioned way to turn a stable handle into a storage address, and it
// drives every structural change by delegating to the archetypes.
type EntityProvider struct {
	registry    *Registry
	records     []entityRecord
	freeIndices []uint32
	iterating   int
	logger      *zerolog.Logger
}

// NewEntityProvider creates an empty provider on top of the registry.
func NewEntityProvider(registry *Registry, logger *zerolog.Logger) *EntityProvider {
	return &EntityProvider{
		registry: registry,
		records:  make([]entityRecord, 0, 256),
		logger:   logger,
	}
}

// Create allocates a stable handle and places the entity in the
// empty-signature archetype. Freed indices are reused with a bumped
// generation, so handles to the previous tenant stay dead.
func (p *EntityProvider) Create() (types.Entity, error) {
	if err := p.guard(); err != nil {
		return types.Null, err
	}

	var index uint32
	if n := len(p.freeIndices); n > 0 {
		index = p.freeIndices[n-1]
		p.freeIndices = p.freeIndices[:n-1]
	} else {
		index = uint32(len(p.records))
		p.records = append(p.records, entityRecord{})
	}

	entity := types.Entity{Index: index, Generation: p.records[index].generation}
	empty := p.registry.GetOrCreate(NewSignature(), nil)
	loc, err := empty.AddEntity(entity, nil)
	if err != nil {
		p.freeIndices = append(p.freeIndices, index)
		return types.Null, err
	}
	p.records[index].loc = loc

	if p.logger != nil {
		ecslog.Entity(p.logger, zerolog.DebugLevel, entity, loc.ArchID, empty.Components())
	}
	statsd.EmitStructuralChange("create")
	return entity, nil
}

// Destroy tombstones the entity's row and invalidates every outstanding copy
// of the handle by bumping the index's generation. Fails with ErrStaleEntity
// when the handle is already dead.
func (p *EntityProvider) Destroy(entity types.Entity) error {
	if err := p.guard(); err != nil {
		return err
	}
	record, err := p.record(entity)
	if err != nil {
		return err
	}

	p.registry.Archetype(record.loc.ArchID).RemoveEntity(record.loc)
	record.generation++
	p.freeIndices = append(p.freeIndices, entity.Index)

	if p.logger != nil {
		p.logger.Debug().
			Uint32("entity_index", entity.Index).
			Uint32("generation", entity.Generation).
			Msg("destroyed entity")
	}
	statsd.EmitStructuralChange("destroy")
	return nil
}

// Resolve translates a stable handle into its current physical locator. The
// locator is only valid until the next structural change to the entity; it
// must be re-resolved, never cached across that boundary.
func (p *EntityProvider) Resolve(entity types.Entity) (Location, error) {
	record, err := p.record(entity)
	if err != nil {
		return Location{}, err
	}
	return record.loc, nil
}

// IsAlive reports whether the handle still names a live entity.
func (p *EntityProvider) IsAlive(entity types.Entity) bool {
	_, err := p.record(entity)
	return err == nil
}

// Count returns the number of live entities.
func (p *EntityProvider) Count() int {
	return len(p.records) - len(p.freeIndices)
}

// AddComponent moves the entity to the archetype whose signature adds the
// given component and writes the initial value. The stored locator is
// updated to the entity's new address.
func (p *EntityProvider) AddComponent(entity types.Entity, comp types.ComponentMetadata, data []byte) error {
	if err := p.guard(); err != nil {
		return err
	}
	record, err := p.record(entity)
	if err != nil {
		return err
	}

	src := p.registry.Archetype(record.loc.ArchID)
	if src.Signature().Contains(comp.ID()) {
		return eris.Wrap(ErrComponentAlreadyOnEntity,
			fmt.Sprintf("entity %s already has component %q", entity, comp.Name()))
	}

	dstComps := make([]types.ComponentMetadata, 0, len(src.Components())+1)
	dstComps = append(dstComps, src.Components()...)
	dstComps = append(dstComps, comp)
	dst := p.registry.GetOrCreate(src.Signature().With(comp.ID()), dstComps)

	loc, err := src.MoveEntity(record.loc, dst, []ComponentValue{{ID: comp.ID(), Data: data}})
	if err != nil {
		return err
	}
	record.loc = loc

	if p.logger != nil {
		ecslog.Entity(p.logger, zerolog.DebugLevel, entity, loc.ArchID, dst.Components())
	}
	statsd.EmitStructuralChange("add_component")
	return nil
}

// RemoveComponent moves the entity to the archetype whose signature drops
// the given component, preserving every retained component's value. The
// stored locator is updated to the entity's new address.
func (p *EntityProvider) RemoveComponent(entity types.Entity, id types.ComponentID) error {
	if err := p.guard(); err != nil {
		return err
	}
	record, err := p.record(entity)
	if err != nil {
		return err
	}

	src := p.registry.Archetype(record.loc.ArchID)
	if !src.Signature().Contains(id) {
		return eris.Wrap(ErrComponentNotOnEntity,
			fmt.Sprintf("entity %s does not have component %d", entity, id))
	}

	dstComps := make([]types.ComponentMetadata, 0, len(src.Components())-1)
	for _, comp := range src.Components() {
		if comp.ID() != id {
			dstComps = append(dstComps, comp)
		}
	}
	dst := p.registry.GetOrCreate(src.Signature().Without(id), dstComps)

	loc, err := src.MoveEntity(record.loc, dst, nil)
	if err != nil {
		return err
	}
	record.loc = loc

	if p.logger != nil {
		ecslog.Entity(p.logger, zerolog.DebugLevel, entity, loc.ArchID, dst.Components())
	}
	statsd.EmitStructuralChange("remove_component")
	return nil
}

// BeginIteration marks the start of a query pass. While any pass is active,
// structural changes fail with ErrIterationInProgress; borrowed row views
// stay valid for the whole pass.
func (p *EntityProvider) BeginIteration() {
	p.iterating++
}

// EndIteration marks the end of a query pass.
func (p *EntityProvider) EndIteration() {
	if p.iterating == 0 {
		panic("lattice: EndIteration without matching BeginIteration")
	}
	p.iterating--
}

func (p *EntityProvider) guard() error {
	if p.iterating > 0 {
		return eris.Wrap(ErrIterationInProgress, "queue the change on a command buffer instead")
	}
	return nil
}

func (p *EntityProvider) record(entity types.Entity) (*entityRecord, error) {
	if entity.IsNull() || int(entity.Index) >= len(p.records) {
		return nil, eris.Wrap(ErrStaleEntity, fmt.Sprintf("no record for %s", entity))
	}
	record := &p.records[entity.Index]
	if record.generation != entity.Generation {
		return nil, eris.Wrap(ErrStaleEntity,
			fmt.Sprintf("%s superseded by generation %d", entity, record.generation))
	}
	return record, nil
}
