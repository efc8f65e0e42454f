package storage_test

import (
	"testing"

	"pkg.lattice.dev/lattice/assert"
	"pkg.lattice.dev/lattice/storage"
)

func newTestProvider(t *testing.T, tableCapacity int) *storage.EntityProvider {
	t.Helper()
	registry := storage.NewRegistry(tableCapacity, nil)
	return storage.NewEntityProvider(registry, nil)
}

func TestProviderResolveRoundTrip(t *testing.T) {
	provider := newTestProvider(t, 4)

	e, err := provider.Create()
	assert.NilError(t, err)
	assert.True(t, provider.IsAlive(e))

	loc, err := provider.Resolve(e)
	assert.NilError(t, err)
	assert.Equal(t, loc.ArchID, storage.NewLocation(0, 0, 0).ArchID)
}

func TestProviderDestroyInvalidatesHandle(t *testing.T) {
	provider := newTestProvider(t, 4)

	e, err := provider.Create()
	assert.NilError(t, err)
	assert.NilError(t, provider.Destroy(e))

	assert.True(t, !provider.IsAlive(e))
	_, err = provider.Resolve(e)
	assert.ErrorIs(t, err, storage.ErrStaleEntity)
	assert.ErrorIs(t, provider.Destroy(e), storage.ErrStaleEntity)
}

func TestProviderReusesIndexWithNewGeneration(t *testing.T) {
	provider := newTestProvider(t, 4)

	e1, err := provider.Create()
	assert.NilError(t, err)
	assert.NilError(t, provider.Destroy(e1))

	e2, err := provider.Create()
	assert.NilError(t, err)

	// same slot, distinct handle
	assert.Equal(t, e2.Index, e1.Index)
	assert.Equal(t, e2.Generation, e1.Generation+1)
	assert.True(t, provider.IsAlive(e2))
	assert.True(t, !provider.IsAlive(e1))
}

func TestProviderAddAndRemoveComponent(t *testing.T) {
	pos := newMeta[Position](t, 1)
	registry := storage.NewRegistry(4, nil)
	provider := storage.NewEntityProvider(registry, nil)

	e, err := provider.Create()
	assert.NilError(t, err)

	want := Position{X: 1, Y: 2, Z: 3}
	assert.NilError(t, provider.AddComponent(e, pos, bytesOf(&want)))

	loc, err := provider.Resolve(e)
	assert.NilError(t, err)
	arch := registry.Archetype(loc.ArchID)
	assert.True(t, arch.Signature().Contains(pos.ID()))
	got := valueAt[Position](arch.Table(loc.TableID).Component(pos.ID(), loc.Row))
	assert.Equal(t, got, want)
	// the identity round-trips: the row's entity column holds the handle
	assert.Equal(t, arch.Table(loc.TableID).Entity(loc.Row), e)

	assert.ErrorIs(t, provider.AddComponent(e, pos, bytesOf(&want)),
		storage.ErrComponentAlreadyOnEntity)

	assert.NilError(t, provider.RemoveComponent(e, pos.ID()))
	loc, err = provider.Resolve(e)
	assert.NilError(t, err)
	assert.True(t, !registry.Archetype(loc.ArchID).Signature().Contains(pos.ID()))

	assert.ErrorIs(t, provider.RemoveComponent(e, pos.ID()),
		storage.ErrComponentNotOnEntity)
}

func TestProviderStructuralChangeBlockedDuringIteration(t *testing.T) {
	pos := newMeta[Position](t, 1)
	provider := newTestProvider(t, 4)

	e, err := provider.Create()
	assert.NilError(t, err)

	provider.BeginIteration()
	_, err = provider.Create()
	assert.ErrorIs(t, err, storage.ErrIterationInProgress)
	assert.ErrorIs(t, provider.Destroy(e), storage.ErrIterationInProgress)
	v := Position{}
	assert.ErrorIs(t, provider.AddComponent(e, pos, bytesOf(&v)), storage.ErrIterationInProgress)
	provider.EndIteration()

	// the guard lifts once the pass ends
	assert.NilError(t, provider.Destroy(e))
}

func TestProviderCount(t *testing.T) {
	provider := newTestProvider(t, 4)

	assert.Equal(t, provider.Count(), 0)
	e1, err := provider.Create()
	assert.NilError(t, err)
	_, err = provider.Create()
	assert.NilError(t, err)
	assert.Equal(t, provider.Count(), 2)

	assert.NilError(t, provider.Destroy(e1))
	assert.Equal(t, provider.Count(), 1)
}
