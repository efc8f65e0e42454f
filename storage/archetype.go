package storage

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.lattice.dev/lattice/types"
)

// ComponentValue pairs a component ID with one raw value, exactly the
// component's size. It is how initial and added component values travel into
// the storage layer.
type ComponentValue struct {
	ID   types.ComponentID
	Data []byte
}

// Archetype owns every table that stores its immutable component signature.
// It also carries directed edges to each archetype whose signature is a
// strict superset of its own; the registry keeps that edge set transitively
// complete, so query execution only follows stored edges.
type Archetype struct {
	id            types.ArchetypeID
	signature     Signature
	comps         []types.ComponentMetadata // sorted by component ID
	tableCapacity int
	tables        []*Table
	supersets     []types.ArchetypeID // edge-insertion order
	logger        *zerolog.Logger
}

// NewArchetype creates an archetype with no tables; the first table is
// allocated on first insert. comps must correspond to signature and be
// sorted by component ID.
func NewArchetype(
	id types.ArchetypeID,
	signature Signature,
	comps []types.ComponentMetadata,
	tableCapacity int,
	logger *zerolog.Logger,
) *Archetype {
	return &Archetype{
		id:            id,
		signature:     signature,
		comps:         comps,
		tableCapacity: tableCapacity,
		tables:        make([]*Table, 0, 1),
		logger:        logger,
	}
}

func (a *Archetype) ID() types.ArchetypeID {
	return a.id
}

func (a *Archetype) Signature() Signature {
	return a.signature
}

// Components returns the metadata for the archetype's signature, sorted by
// component ID. The returned slice is shared; callers must not mutate it.
func (a *Archetype) Components() []types.ComponentMetadata {
	return a.comps
}

// Tables returns the owned tables in allocation order. The returned slice is
// shared; callers must not mutate it.
func (a *Archetype) Tables() []*Table {
	return a.tables
}

// Table returns the owned table with the given ID.
func (a *Archetype) Table(id types.TableID) *Table {
	if int(id) < 0 || int(id) >= len(a.tables) {
		panic(fmt.Sprintf("lattice: archetype %d has no table %d", a.id, id))
	}
	return a.tables[id]
}

// Count returns the number of live entities across all owned tables.
func (a *Archetype) Count() int {
	count := 0
	for _, table := range a.tables {
		count += table.LiveCount()
	}
	return count
}

// AddEntity places the entity in the first table with a free row, allocating
// a new table when every existing one is full, and writes the given initial
// component values. Components without an initial value start zeroed.
func (a *Archetype) AddEntity(entity types.Entity, values []ComponentValue) (Location, error) {
	for _, value := range values {
		if !a.signature.Contains(value.ID) {
			return Location{}, eris.Wrap(ErrComponentNotInArchetype,
				fmt.Sprintf("component %d is not in archetype %s", value.ID, a.signature))
		}
	}

	table, row, err := a.insert(entity)
	if err != nil {
		return Location{}, err
	}
	for _, value := range values {
		table.SetComponent(value.ID, row, value.Data)
	}
	return NewLocation(a.id, table.ID(), row), nil
}

// RemoveEntity tombstones the row named by the locator. No other row in the
// archetype is touched, so no other entity's locator changes.
func (a *Archetype) RemoveEntity(loc Location) {
	a.Table(loc.TableID).Remove(loc.Row)
}

// MoveEntity relocates the row named by the locator into the destination
// archetype: every component shared by both signatures is copied by raw
// value, the added values are written, and the source row is tombstoned. The
// caller owns updating the entity's stored locator with the returned one.
func (a *Archetype) MoveEntity(loc Location, dst *Archetype, added []ComponentValue) (Location, error) {
	src := a.Table(loc.TableID)
	entity := src.Entity(loc.Row)

	dstTable, dstRow, err := dst.insert(entity)
	if err != nil {
		return Location{}, err
	}
	for _, comp := range a.comps {
		if !dst.signature.Contains(comp.ID()) {
			continue
		}
		dstTable.SetComponent(comp.ID(), dstRow, src.Component(comp.ID(), loc.Row))
	}
	for _, value := range added {
		if !dst.signature.Contains(value.ID) {
			dstTable.Remove(dstRow)
			return Location{}, eris.Wrap(ErrComponentNotInArchetype,
				fmt.Sprintf("component %d is not in archetype %s", value.ID, dst.signature))
		}
		dstTable.SetComponent(value.ID, dstRow, value.Data)
	}

	src.Remove(loc.Row)
	return NewLocation(dst.id, dstTable.ID(), dstRow), nil
}

// Supersets returns the IDs of every archetype whose signature strictly
// contains this one, in edge-insertion order. The returned slice is shared;
// callers must not mutate it.
func (a *Archetype) Supersets() []types.ArchetypeID {
	return a.supersets
}

func (a *Archetype) addSupersetEdge(id types.ArchetypeID) {
	a.supersets = append(a.supersets, id)
}

// insert finds a free row across the owned tables in allocation order,
// allocating a fresh table when all are full. Table-full signals are
// absorbed here and never escape.
func (a *Archetype) insert(entity types.Entity) (*Table, types.Row, error) {
	for _, table := range a.tables {
		row, err := table.Insert(entity)
		if err == nil {
			return table, row, nil
		}
		if !eris.Is(eris.Cause(err), errTableFull) {
			return nil, 0, err
		}
	}

	table := NewTable(types.TableID(len(a.tables)), a.comps, a.tableCapacity)
	a.tables = append(a.tables, table)
	if a.logger != nil {
		a.logger.Debug().
			Int("archetype_id", int(a.id)).
			Int("table_id", int(table.ID())).
			Int("capacity", a.tableCapacity).
			Msg("allocated table")
	}
	row, err := table.Insert(entity)
	if err != nil {
		return nil, 0, eris.Wrap(err, "insert into freshly allocated table failed")
	}
	return table, row, nil
}
