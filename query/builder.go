package query

import (
	"github.com/rotisserie/eris"

	"pkg.lattice.dev/lattice/component"
	"pkg.lattice.dev/lattice/filter"
	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

// Builder accumulates a query's component sets and access intent, then
// compiles them into an executable Query. The three sets must be disjoint:
// required components anchor the search, optional components are reported
// present-or-absent per row, excluded components reject whole archetypes.
type Builder struct {
	components *component.Manager
	registry   *storage.Registry
	provider   *storage.EntityProvider
	required   []filter.ComponentWrapper
	optional   []filter.ComponentWrapper
	excluded   []filter.ComponentWrapper
	writes     []filter.ComponentWrapper
}

// NewBuilder starts an empty query against the given world collaborators.
func NewBuilder(
	components *component.Manager,
	registry *storage.Registry,
	provider *storage.EntityProvider,
) *Builder {
	return &Builder{
		components: components,
		registry:   registry,
		provider:   provider,
	}
}

// Require adds components every matched entity must have.
func (b *Builder) Require(comps ...filter.ComponentWrapper) *Builder {
	b.required = append(b.required, comps...)
	return b
}

// Optional adds components whose presence is unconstrained; rows report them
// through Has.
func (b *Builder) Optional(comps ...filter.ComponentWrapper) *Builder {
	b.optional = append(b.optional, comps...)
	return b
}

// Exclude adds components no matched entity may have.
func (b *Builder) Exclude(comps ...filter.ComponentWrapper) *Builder {
	b.excluded = append(b.excluded, comps...)
	return b
}

// Write declares write intent on components the query will mutate. This is a
// static contract for readers of the query, not enforced by storage; every
// other accessed component is implicitly read-only.
func (b *Builder) Write(comps ...filter.ComponentWrapper) *Builder {
	b.writes = append(b.writes, comps...)
	return b
}

// Build resolves the component sets against the registry and compiles the
// query. The anchor archetype for the exact required signature is created
// here if it does not exist yet.
func (b *Builder) Build() (*Query, error) {
	required, err := b.resolve(b.required)
	if err != nil {
		return nil, err
	}
	optional, err := b.resolve(b.optional)
	if err != nil {
		return nil, err
	}
	excluded, err := b.resolve(b.excluded)
	if err != nil {
		return nil, err
	}
	writes, err := b.resolve(b.writes)
	if err != nil {
		return nil, err
	}

	if err := mustDisjoint(required, optional, "required", "optional"); err != nil {
		return nil, err
	}
	if err := mustDisjoint(required, excluded, "required", "excluded"); err != nil {
		return nil, err
	}
	if err := mustDisjoint(optional, excluded, "optional", "excluded"); err != nil {
		return nil, err
	}
	for _, comp := range writes {
		if !filter.MatchComponentMetadata(required, comp) && !filter.MatchComponentMetadata(optional, comp) {
			return nil, eris.Errorf("write intent on component %q, which is neither required nor optional", comp.Name())
		}
	}

	requiredIDs := make([]types.ComponentID, len(required))
	for i, comp := range required {
		requiredIDs[i] = comp.ID()
	}
	anchor := b.registry.GetOrCreate(storage.NewSignature(requiredIDs...), required)

	exclusion := filter.ComponentFilter(filter.All())
	if len(b.excluded) > 0 {
		perComponent := make([]filter.ComponentFilter, len(b.excluded))
		for i, comp := range b.excluded {
			perComponent[i] = filter.Contains(comp)
		}
		exclusion = filter.Not(filter.Or(perComponent...))
	}

	writeIntent := make(map[types.ComponentID]bool, len(writes))
	for _, comp := range writes {
		writeIntent[comp.ID()] = true
	}

	return &Query{
		components:  b.components,
		registry:    b.registry,
		provider:    b.provider,
		anchor:      anchor,
		exclusion:   exclusion,
		writeIntent: writeIntent,
		archMatches: &cache{},
	}, nil
}

// resolve looks up metadata for each wrapped component. The sets have set
// semantics, so a component listed twice collapses to one entry.
func (b *Builder) resolve(wrapped []filter.ComponentWrapper) ([]types.ComponentMetadata, error) {
	comps := make([]types.ComponentMetadata, 0, len(wrapped))
	for _, w := range wrapped {
		comp, err := b.components.GetComponentByName(w.Component.Name())
		if err != nil {
			return nil, err
		}
		if filter.MatchComponentMetadata(comps, comp) {
			continue
		}
		comps = append(comps, comp)
	}
	return comps, nil
}

func mustDisjoint(a, b []types.ComponentMetadata, aName, bName string) error {
	for _, comp := range a {
		if filter.MatchComponentMetadata(b, comp) {
			return eris.Errorf("component %q cannot be both %s and %s",
				comp.Name(), aName, bName)
		}
	}
	return nil
}
