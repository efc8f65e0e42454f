package query

import (
	"time"

	"github.com/rotisserie/eris"

	"pkg.lattice.dev/lattice/component"
	"pkg.lattice.dev/lattice/filter"
	"pkg.lattice.dev/lattice/statsd"
	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

var ErrNoEntitiesMatch = eris.New("no entity matches the query")

// CallbackFn receives one per-row view per matched entity. Return false to
// stop the iteration early.
type CallbackFn func(*Row) bool

type cache struct {
	archetypes []types.ArchetypeID
	seen       int
	anchorSeen bool
}

// Query is a compiled component filter plus the iteration it drives. An
// archetype matches when its signature contains every required component and
// none of the excluded ones. Matching starts from the anchor archetype for
// the exact required signature and follows its stored superset edges, so it
// never scans archetypes that cannot match; the exclusion test is re-applied
// per candidate because a superset may have picked up an excluded component.
//
// Matches are cached: each execution only inspects superset edges recorded
// since the previous one, so reusing a Query across passes is cheap and
// recommended.
type Query struct {
	components  *component.Manager
	registry    *storage.Registry
	provider    *storage.EntityProvider
	anchor      *storage.Archetype
	exclusion   filter.ComponentFilter
	writeIntent map[types.ComponentID]bool
	archMatches *cache
}

// Each iterates over all entities that match the query, in anchor-then-edge
// order across archetypes, allocation order across tables, and ascending row
// order within a table. That order is an implementation detail, not a
// guarantee. The *Row passed to the callback borrows column storage and is
// valid only for the current iteration step. Structural changes are rejected
// for the duration of the pass; queue them on a command buffer.
func (q *Query) Each(callback CallbackFn) error {
	start := time.Now()
	q.provider.BeginIteration()
	defer q.provider.EndIteration()

	for _, archID := range q.evaluateSearch() {
		arch := q.registry.Archetype(archID)
		for _, table := range arch.Tables() {
			if table.LiveCount() == 0 {
				continue
			}
			iter := table.OccupiedRows()
			for iter.HasNext() {
				row := Row{query: q, archetype: arch, table: table, row: iter.Next()}
				if !callback(&row) {
					statsd.EmitQueryStat(start)
					return nil
				}
			}
		}
	}
	statsd.EmitQueryStat(start)
	return nil
}

// Count returns the number of entities that match the query.
func (q *Query) Count() (int, error) {
	q.provider.BeginIteration()
	defer q.provider.EndIteration()

	count := 0
	for _, archID := range q.evaluateSearch() {
		count += q.registry.Archetype(archID).Count()
	}
	return count, nil
}

// First returns the first entity that matches the query, or
// ErrNoEntitiesMatch when nothing does.
func (q *Query) First() (types.Entity, error) {
	found := types.Null
	err := q.Each(func(row *Row) bool {
		found = row.Entity()
		return false
	})
	if err != nil {
		return types.Null, err
	}
	if found.IsNull() {
		return types.Null, eris.Wrap(ErrNoEntitiesMatch, "")
	}
	return found, nil
}

// MustFirst returns the first entity that matches the query and panics when
// nothing does.
func (q *Query) MustFirst() types.Entity {
	entity, err := q.First()
	if err != nil {
		panic("no entity matches the query")
	}
	return entity
}

// WritesTo reports the query's declared write intent for a component. The
// intent is a static contract only; storage does not enforce it.
func (q *Query) WritesTo(id types.ComponentID) bool {
	return q.writeIntent[id]
}

// evaluateSearch returns every matching archetype ID, extending the cached
// result with archetypes whose superset edges appeared since the last
// execution. Edges are append-only, so resuming at the previously seen count
// is sound.
func (q *Query) evaluateSearch() []types.ArchetypeID {
	cache := q.archMatches
	if !cache.anchorSeen {
		if q.matches(q.anchor) {
			cache.archetypes = append(cache.archetypes, q.anchor.ID())
		}
		cache.anchorSeen = true
	}
	supersets := q.anchor.Supersets()
	for i := cache.seen; i < len(supersets); i++ {
		arch := q.registry.Archetype(supersets[i])
		if q.matches(arch) {
			cache.archetypes = append(cache.archetypes, arch.ID())
		}
	}
	cache.seen = len(supersets)
	return cache.archetypes
}

func (q *Query) matches(arch *storage.Archetype) bool {
	comps := types.ConvertComponentMetadatasToComponents(arch.Components())
	return q.exclusion.MatchesComponents(comps)
}
