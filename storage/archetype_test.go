package storage_test

import (
	"testing"

	"pkg.lattice.dev/lattice/assert"
	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

func newTestArchetype(
	t *testing.T,
	id types.ArchetypeID,
	tableCapacity int,
	comps ...types.ComponentMetadata,
) *storage.Archetype {
	t.Helper()
	return storage.NewArchetype(id, testSignature(comps...), comps, tableCapacity, nil)
}

func TestArchetypeAllocatesTableOnDemand(t *testing.T) {
	pos := newMeta[Position](t, 1)
	arch := newTestArchetype(t, 0, 2, pos)
	assert.Len(t, arch.Tables(), 0)

	loc, err := arch.AddEntity(entity(0, 0), nil)
	assert.NilError(t, err)
	assert.Equal(t, loc, storage.NewLocation(0, 0, 0))
	assert.Len(t, arch.Tables(), 1)
}

func TestArchetypeGrowsPastFullTables(t *testing.T) {
	pos := newMeta[Position](t, 1)
	arch := newTestArchetype(t, 0, 2, pos)

	// fill the first table
	_, err := arch.AddEntity(entity(0, 0), nil)
	assert.NilError(t, err)
	_, err = arch.AddEntity(entity(1, 0), nil)
	assert.NilError(t, err)
	assert.Len(t, arch.Tables(), 1)

	// the third entity overflows into a freshly allocated table
	loc, err := arch.AddEntity(entity(2, 0), nil)
	assert.NilError(t, err)
	assert.Equal(t, loc, storage.NewLocation(0, 1, 0))
	assert.Len(t, arch.Tables(), 2)
	assert.Equal(t, arch.Count(), 3)
}

func TestArchetypeRemoveLeavesOtherRowsInPlace(t *testing.T) {
	pos := newMeta[Position](t, 1)
	arch := newTestArchetype(t, 0, 2, pos)

	e1, e2 := entity(0, 0), entity(1, 0)
	loc1, err := arch.AddEntity(e1, nil)
	assert.NilError(t, err)
	loc2, err := arch.AddEntity(e2, nil)
	assert.NilError(t, err)

	arch.RemoveEntity(loc1)
	assert.Equal(t, arch.Count(), 1)
	// e2's row did not move
	assert.Equal(t, arch.Table(loc2.TableID).Entity(loc2.Row), e2)
}

func TestArchetypeTombstoneReuseKeepsSlotOrder(t *testing.T) {
	pos := newMeta[Position](t, 1)
	arch := newTestArchetype(t, 0, 2, pos)

	e1, e2, e3 := entity(0, 0), entity(1, 0), entity(2, 0)
	loc1, err := arch.AddEntity(e1, nil)
	assert.NilError(t, err)
	_, err = arch.AddEntity(e2, nil)
	assert.NilError(t, err)

	arch.RemoveEntity(loc1)
	loc3, err := arch.AddEntity(e3, nil)
	assert.NilError(t, err)

	// e3 reused e1's tombstoned row, so slot order is (e3, e2)
	assert.Equal(t, loc3, storage.NewLocation(0, 0, 0))
	table := arch.Table(0)
	var got []types.Entity
	for it := table.OccupiedRows(); it.HasNext(); {
		got = append(got, table.Entity(it.Next()))
	}
	assert.DeepEqual(t, got, []types.Entity{e3, e2})
}

func TestArchetypeMoveEntityCopiesSharedComponents(t *testing.T) {
	pos := newMeta[Position](t, 1)
	vel := newMeta[Velocity](t, 2)
	src := newTestArchetype(t, 0, 4, pos)
	dst := newTestArchetype(t, 1, 4, pos, vel)

	e := entity(0, 0)
	want := Position{X: 3, Y: 5, Z: 7}
	srcLoc, err := src.AddEntity(e, []storage.ComponentValue{{ID: pos.ID(), Data: bytesOf(&want)}})
	assert.NilError(t, err)

	added := Velocity{DX: 1, DY: -1}
	dstLoc, err := src.MoveEntity(srcLoc, dst, []storage.ComponentValue{{ID: vel.ID(), Data: bytesOf(&added)}})
	assert.NilError(t, err)

	assert.Equal(t, src.Count(), 0)
	assert.Equal(t, dst.Count(), 1)

	table := dst.Table(dstLoc.TableID)
	assert.Equal(t, table.Entity(dstLoc.Row), e)
	assert.Equal(t, valueAt[Position](table.Component(pos.ID(), dstLoc.Row)), want)
	assert.Equal(t, valueAt[Velocity](table.Component(vel.ID(), dstLoc.Row)), added)
}

func TestArchetypeMoveEntityNarrowingDropsComponent(t *testing.T) {
	pos := newMeta[Position](t, 1)
	vel := newMeta[Velocity](t, 2)
	src := newTestArchetype(t, 0, 4, pos, vel)
	dst := newTestArchetype(t, 1, 4, pos)

	e := entity(0, 0)
	keep := Position{X: 11, Y: 13, Z: 17}
	drop := Velocity{DX: 2, DY: 4}
	srcLoc, err := src.AddEntity(e, []storage.ComponentValue{
		{ID: pos.ID(), Data: bytesOf(&keep)},
		{ID: vel.ID(), Data: bytesOf(&drop)},
	})
	assert.NilError(t, err)

	dstLoc, err := src.MoveEntity(srcLoc, dst, nil)
	assert.NilError(t, err)

	table := dst.Table(dstLoc.TableID)
	// the retained component survives byte for byte
	assert.Equal(t, valueAt[Position](table.Component(pos.ID(), dstLoc.Row)), keep)
	assert.True(t, !dst.Signature().Contains(vel.ID()))
}

func TestArchetypeRejectsForeignInitialValue(t *testing.T) {
	pos := newMeta[Position](t, 1)
	vel := newMeta[Velocity](t, 2)
	arch := newTestArchetype(t, 0, 4, pos)

	v := Velocity{DX: 1}
	_, err := arch.AddEntity(entity(0, 0), []storage.ComponentValue{{ID: vel.ID(), Data: bytesOf(&v)}})
	assert.ErrorIs(t, err, storage.ErrComponentNotInArchetype)
}
