package storage

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"pkg.lattice.dev/lattice/filter"
	"pkg.lattice.dev/lattice/statsd"
	"pkg.lattice.dev/lattice/types"
)

// Registry owns every archetype, keyed by canonical signature. Archetypes
// are created lazily on first use of a signature and persist for the life of
// the process. On creation the registry compares the new signature against
// every existing one and records subset -> superset edges in both
// directions, which keeps each archetype's edge set transitively complete.
type Registry struct {
	tableCapacity int
	archetypes    []*Archetype
	bySignature   map[SignatureKey]*Archetype
	logger        *zerolog.Logger
}

// NewRegistry creates an empty registry whose archetypes allocate tables of
// the given capacity.
func NewRegistry(tableCapacity int, logger *zerolog.Logger) *Registry {
	if tableCapacity < 1 {
		panic(fmt.Sprintf("lattice: table capacity must be positive, got %d", tableCapacity))
	}
	return &Registry{
		tableCapacity: tableCapacity,
		archetypes:    make([]*Archetype, 0, 16),
		bySignature:   make(map[SignatureKey]*Archetype, 16),
		logger:        logger,
	}
}

// Count returns the number of registered archetypes.
func (r *Registry) Count() int {
	return len(r.archetypes)
}

// Archetype returns the archetype with the given ID.
func (r *Registry) Archetype(id types.ArchetypeID) *Archetype {
	if int(id) < 0 || int(id) >= len(r.archetypes) {
		panic(fmt.Sprintf("lattice: no archetype with id %d", id))
	}
	return r.archetypes[id]
}

// GetOrCreate returns the archetype for the signature, creating it on first
// use. comps must carry metadata for exactly the signature's components; on
// lookup hits it is ignored.
func (r *Registry) GetOrCreate(signature Signature, comps []types.ComponentMetadata) *Archetype {
	if arch, ok := r.bySignature[signature.Key()]; ok {
		return arch
	}

	sorted := make([]types.ComponentMetadata, len(comps))
	copy(sorted, comps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })
	if len(sorted) != signature.Len() {
		panic(fmt.Sprintf("lattice: %d component metadata entries for signature %s",
			len(sorted), signature))
	}

	arch := NewArchetype(types.ArchetypeID(len(r.archetypes)), signature, sorted, r.tableCapacity, r.logger)
	for _, existing := range r.archetypes {
		if existing.signature.StrictSubsetOf(signature) {
			existing.addSupersetEdge(arch.id)
		}
		if signature.StrictSubsetOf(existing.signature) {
			arch.addSupersetEdge(existing.id)
		}
	}
	r.archetypes = append(r.archetypes, arch)
	r.bySignature[signature.Key()] = arch

	if r.logger != nil {
		r.logger.Debug().
			Int("archetype_id", int(arch.id)).
			Str("signature", signature.String()).
			Int("archetype_count", len(r.archetypes)).
			Msg("created archetype")
	}
	statsd.EmitArchetypeCreated()

	return arch
}

// SearchFrom returns an iterator over every archetype at or after the start
// index whose component set matches the filter. Archetype IDs are assigned
// in creation order, so callers can resume a previous search by passing the
// count they already saw.
func (r *Registry) SearchFrom(f filter.ComponentFilter, start int) *ArchetypeIterator {
	iterator := &ArchetypeIterator{}
	for id := start; id < len(r.archetypes); id++ {
		comps := types.ConvertComponentMetadatasToComponents(r.archetypes[id].Components())
		if f.MatchesComponents(comps) {
			iterator.Values = append(iterator.Values, types.ArchetypeID(id))
		}
	}
	return iterator
}

// ArchetypeIterator walks a precomputed list of archetype IDs.
type ArchetypeIterator struct {
	Current int
	Values  []types.ArchetypeID
}

func (it *ArchetypeIterator) HasNext() bool {
	return it.Current < len(it.Values)
}

func (it *ArchetypeIterator) Next() types.ArchetypeID {
	val := it.Values[it.Current]
	it.Current++
	return val
}
