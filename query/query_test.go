package query_test

import (
	"testing"
	"unsafe"

	"pkg.lattice.dev/lattice/assert"
	"pkg.lattice.dev/lattice/component"
	"pkg.lattice.dev/lattice/filter"
	"pkg.lattice.dev/lattice/query"
	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

type Position struct {
	X, Y float64
}

func (Position) Name() string { return "position" }

type Velocity struct {
	DX, DY float64
}

func (Velocity) Name() string { return "velocity" }

type Frozen struct{}

func (Frozen) Name() string { return "frozen" }

type fixture struct {
	components *component.Manager
	registry   *storage.Registry
	provider   *storage.EntityProvider
}

func newFixture(t *testing.T, tableCapacity int) *fixture {
	t.Helper()
	f := &fixture{
		components: component.NewManager(),
		registry:   storage.NewRegistry(tableCapacity, nil),
	}
	f.provider = storage.NewEntityProvider(f.registry, nil)
	register[Position](t, f)
	register[Velocity](t, f)
	register[Frozen](t, f)
	return f
}

func register[T types.Component](t *testing.T, f *fixture) {
	t.Helper()
	meta, err := component.NewComponentMetadata[T]()
	assert.NilError(t, err)
	assert.NilError(t, f.components.RegisterComponent(meta))
}

func addComp[T types.Component](t *testing.T, f *fixture, e types.Entity, value T) {
	t.Helper()
	meta, err := f.components.GetComponentByName(value.Name())
	assert.NilError(t, err)
	var data []byte
	if meta.Size() > 0 {
		data = unsafe.Slice((*byte)(unsafe.Pointer(&value)), meta.Size())
	}
	assert.NilError(t, f.provider.AddComponent(e, meta, data))
}

func (f *fixture) builder() *query.Builder {
	return query.NewBuilder(f.components, f.registry, f.provider)
}

func collect(t *testing.T, q *query.Query) []types.Entity {
	t.Helper()
	var entities []types.Entity
	assert.NilError(t, q.Each(func(row *query.Row) bool {
		entities = append(entities, row.Entity())
		return true
	}))
	return entities
}

func TestQueryRequireMatchesSupersets(t *testing.T) {
	f := newFixture(t, 8)

	e1, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e1, Position{X: 1})

	e2, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e2, Position{X: 2})
	addComp(t, f, e2, Velocity{DX: 1})

	e3, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e3, Velocity{DX: 2})

	q, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.NilError(t, err)

	got := collect(t, q)
	assert.Len(t, got, 2)
	assert.Equal(t, got[0], e1)
	assert.Equal(t, got[1], e2)

	count, err := q.Count()
	assert.NilError(t, err)
	assert.Equal(t, count, 2)
}

func TestQueryExcludeRejectsArchetype(t *testing.T) {
	f := newFixture(t, 8)

	moving, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, moving, Position{})
	addComp(t, f, moving, Velocity{})

	stuck, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, stuck, Position{})
	addComp(t, f, stuck, Velocity{})
	addComp(t, f, stuck, Frozen{})

	q, err := f.builder().
		Require(filter.Component[Position](), filter.Component[Velocity]()).
		Exclude(filter.Component[Frozen]()).
		Build()
	assert.NilError(t, err)

	got := collect(t, q)
	assert.Len(t, got, 1)
	assert.Equal(t, got[0], moving)
}

func TestQueryOptionalReportedThroughHas(t *testing.T) {
	f := newFixture(t, 8)

	plain, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, plain, Position{})

	moving, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, moving, Position{})
	addComp(t, f, moving, Velocity{DX: 3})

	q, err := f.builder().
		Require(filter.Component[Position]()).
		Optional(filter.Component[Velocity]()).
		Build()
	assert.NilError(t, err)

	seen := map[types.Entity]bool{}
	assert.NilError(t, q.Each(func(row *query.Row) bool {
		seen[row.Entity()] = query.Has[Velocity](row)
		if query.Has[Velocity](row) {
			assert.Equal(t, query.Get[Velocity](row).DX, 3.0)
		}
		return true
	}))
	assert.False(t, seen[plain])
	assert.True(t, seen[moving])
}

func TestQueryEmptyResultIsNotAnError(t *testing.T) {
	f := newFixture(t, 8)

	q, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.NilError(t, err)

	assert.Len(t, collect(t, q), 0)
	count, err := q.Count()
	assert.NilError(t, err)
	assert.Equal(t, count, 0)

	_, err = q.First()
	assert.ErrorIs(t, err, query.ErrNoEntitiesMatch)
	assert.Panics(t, func() { q.MustFirst() })
}

func TestQueryYieldsReusedSlotInPlace(t *testing.T) {
	f := newFixture(t, 2)

	e1, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e1, Position{X: 1})
	e2, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e2, Position{X: 2})

	assert.NilError(t, f.provider.Destroy(e1))
	e3, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e3, Position{X: 3})

	// e3 reused e1's tombstoned slot, so it comes back before e2
	q, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.NilError(t, err)
	got := collect(t, q)
	assert.Len(t, got, 2)
	assert.Equal(t, got[0], e3)
	assert.Equal(t, got[1], e2)
}

func TestQueryPicksUpArchetypesCreatedBetweenExecutions(t *testing.T) {
	f := newFixture(t, 8)

	e1, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e1, Position{})

	q, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.NilError(t, err)
	assert.Len(t, collect(t, q), 1)

	// a new archetype appears after the first execution; the cached search
	// must extend to it
	e2, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e2, Position{})
	addComp(t, f, e2, Velocity{})

	assert.Len(t, collect(t, q), 2)
}

func TestQueryFirstReturnsEarliestMatch(t *testing.T) {
	f := newFixture(t, 8)

	e1, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e1, Position{})
	e2, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e2, Position{})

	q, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.NilError(t, err)

	first, err := q.First()
	assert.NilError(t, err)
	assert.Equal(t, first, e1)
	assert.Equal(t, q.MustFirst(), e1)
}

func TestQueryWriteIntent(t *testing.T) {
	f := newFixture(t, 8)

	e, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e, Position{X: 1})

	posMeta, err := f.components.GetComponentByName(Position{}.Name())
	assert.NilError(t, err)
	velMeta, err := f.components.GetComponentByName(Velocity{}.Name())
	assert.NilError(t, err)

	q, err := f.builder().
		Require(filter.Component[Position]()).
		Write(filter.Component[Position]()).
		Build()
	assert.NilError(t, err)
	assert.True(t, q.WritesTo(posMeta.ID()))
	assert.False(t, q.WritesTo(velMeta.ID()))

	// mutation through the row pointer lands in storage
	assert.NilError(t, q.Each(func(row *query.Row) bool {
		query.Get[Position](row).X = 9
		return true
	}))
	assert.NilError(t, q.Each(func(row *query.Row) bool {
		assert.Equal(t, query.Get[Position](row).X, 9.0)
		return true
	}))
}

func TestBuilderRejectsInvalidQueries(t *testing.T) {
	f := newFixture(t, 8)

	_, err := f.builder().
		Require(filter.Component[Position]()).
		Exclude(filter.Component[Position]()).
		Build()
	assert.ErrorContains(t, err, "cannot be both")

	_, err = f.builder().
		Require(filter.Component[Position]()).
		Optional(filter.Component[Position]()).
		Build()
	assert.ErrorContains(t, err, "cannot be both")

	_, err = f.builder().
		Require(filter.Component[Position]()).
		Write(filter.Component[Velocity]()).
		Build()
	assert.ErrorContains(t, err, "write intent")
}

func TestBuilderCollapsesDuplicateComponents(t *testing.T) {
	f := newFixture(t, 8)

	e, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e, Position{X: 4})

	// the sets are sets: listing a component twice is the same as once
	q, err := f.builder().
		Require(filter.Component[Position](), filter.Component[Position]()).
		Write(filter.Component[Position](), filter.Component[Position]()).
		Build()
	assert.NilError(t, err)

	got := collect(t, q)
	assert.Len(t, got, 1)
	assert.Equal(t, got[0], e)
}

func TestBuilderRejectsUnregisteredComponent(t *testing.T) {
	f := &fixture{
		components: component.NewManager(),
		registry:   storage.NewRegistry(8, nil),
	}
	f.provider = storage.NewEntityProvider(f.registry, nil)

	_, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.ErrorIs(t, err, component.ErrComponentNotRegistered)
}

func TestQueryBlocksStructuralChangesDuringEach(t *testing.T) {
	f := newFixture(t, 8)

	e, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e, Position{})

	q, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.NilError(t, err)

	assert.NilError(t, q.Each(func(row *query.Row) bool {
		assert.ErrorIs(t, f.provider.Destroy(row.Entity()), storage.ErrIterationInProgress)
		return true
	}))

	// once the pass ends the change goes through
	assert.NilError(t, f.provider.Destroy(e))
}

func TestRowGetPanicsOnAbsentComponent(t *testing.T) {
	f := newFixture(t, 8)

	e, err := f.provider.Create()
	assert.NilError(t, err)
	addComp(t, f, e, Position{})

	q, err := f.builder().Require(filter.Component[Position]()).Build()
	assert.NilError(t, err)

	assert.NilError(t, q.Each(func(row *query.Row) bool {
		assert.Panics(t, func() { query.Get[Velocity](row) })
		return true
	}))
}
