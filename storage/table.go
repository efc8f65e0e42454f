package storage

import (
	"fmt"
	"unsafe"

	"pkg.lattice.dev/lattice/types"
)

// Table is one fixed-capacity structure-of-arrays block. Each component in
// the owning archetype's signature gets one dense byte column of
// capacity*size bytes, plus one entity column of the same capacity. Row i of
// every column describes the same entity, so iterating a single component
// across the table is pure sequential memory access.
//
// Rows are never compacted. A removed row is tombstoned by writing the null
// entity into its identity slot and is reused by a later insert.
type Table struct {
	id            types.TableID
	capacity      int
	comps         []types.ComponentMetadata // sorted by component ID
	columns       [][]byte                  // parallel to comps
	entities      []types.Entity
	liveCount     int
	firstFreeHint int
}

// NewTable allocates a table with all rows tombstoned. comps must be sorted
// by component ID; the owning archetype guarantees that.
func NewTable(id types.TableID, comps []types.ComponentMetadata, capacity int) *Table {
	columns := make([][]byte, len(comps))
	for i, comp := range comps {
		column := make([]byte, capacity*int(comp.Size()))
		// typed access casts cell pointers, so the column base must satisfy
		// the component's alignment; sizes are multiples of alignment, so an
		// aligned base keeps every row cell aligned
		if comp.Size() > 0 && uintptr(unsafe.Pointer(&column[0]))%comp.Align() != 0 {
			panic(fmt.Sprintf("lattice: column for component %q is not %d-byte aligned",
				comp.Name(), comp.Align()))
		}
		columns[i] = column
	}
	entities := make([]types.Entity, capacity)
	for i := range entities {
		entities[i] = types.Null
	}
	return &Table{
		id:       id,
		capacity: capacity,
		comps:    comps,
		columns:  columns,
		entities: entities,
	}
}

func (t *Table) ID() types.TableID {
	return t.id
}

func (t *Table) Capacity() int {
	return t.capacity
}

// LiveCount returns the number of occupied rows.
func (t *Table) LiveCount() int {
	return t.liveCount
}

// Insert claims the first free row at or after the free hint for the given
// entity and returns it. The claimed row's component cells are zeroed. When
// no free row exists the table reports errTableFull to its owning archetype
// without mutating any state.
func (t *Table) Insert(entity types.Entity) (types.Row, error) {
	for i := t.firstFreeHint; i < t.capacity; i++ {
		if !t.entities[i].IsNull() {
			continue
		}
		t.entities[i] = entity
		t.firstFreeHint = i + 1
		t.liveCount++
		t.zeroRow(i)
		return types.Row(i), nil
	}
	return 0, errTableFull
}

// Remove tombstones the row. No other row moves, so no other entity's
// locator is invalidated by this removal.
func (t *Table) Remove(row types.Row) {
	t.mustOccupied(row, "remove")
	t.entities[row] = types.Null
	t.liveCount--
	if int(row) < t.firstFreeHint {
		t.firstFreeHint = int(row)
	}
}

// Entity returns the stable handle stored in the row's identity slot.
func (t *Table) Entity(row types.Row) types.Entity {
	t.mustRow(row)
	return t.entities[row]
}

// SetEntityAt overwrites the row's identity slot. Used only by move/copy
// logic when relocating a row between archetypes.
func (t *Table) SetEntityAt(row types.Row, entity types.Entity) {
	t.mustRow(row)
	t.entities[row] = entity
}

// Component returns the raw cell for the given component at the given row.
// The caller guarantees the component is in the table's signature and the
// row is occupied; violating either is a matching bug and panics.
func (t *Table) Component(id types.ComponentID, row types.Row) []byte {
	t.mustOccupied(row, "component access")
	slot := t.slotOf(id)
	size := int(t.comps[slot].Size())
	return t.columns[slot][int(row)*size : (int(row)+1)*size : (int(row)+1)*size]
}

// SetComponent copies a raw value into the cell for the given component at
// the given row. The value must be exactly the component's size.
func (t *Table) SetComponent(id types.ComponentID, row types.Row, data []byte) {
	t.mustOccupied(row, "component write")
	slot := t.slotOf(id)
	size := int(t.comps[slot].Size())
	if len(data) != size {
		panic(fmt.Sprintf("lattice: value for component %q is %d bytes, column cell is %d",
			t.comps[slot].Name(), len(data), size))
	}
	copy(t.columns[slot][int(row)*size:(int(row)+1)*size], data)
}

// Contains reports whether the component is part of the table's signature.
func (t *Table) Contains(id types.ComponentID) bool {
	for _, comp := range t.comps {
		if comp.ID() == id {
			return true
		}
	}
	return false
}

// OccupiedRows returns a restartable iterator over occupied rows in
// ascending order, skipping tombstones. The iterator borrows the table's
// state and is invalidated by any structural change to the table.
func (t *Table) OccupiedRows() RowIterator {
	return RowIterator{table: t}
}

func (t *Table) slotOf(id types.ComponentID) int {
	for i, comp := range t.comps {
		if comp.ID() == id {
			return i
		}
	}
	panic(fmt.Sprintf("lattice: component %d not in table signature", id))
}

func (t *Table) zeroRow(row int) {
	for slot, comp := range t.comps {
		size := int(comp.Size())
		cell := t.columns[slot][row*size : (row+1)*size]
		for i := range cell {
			cell[i] = 0
		}
	}
}

func (t *Table) mustRow(row types.Row) {
	if int(row) < 0 || int(row) >= t.capacity {
		panic(fmt.Sprintf("lattice: row %d out of range [0, %d)", row, t.capacity))
	}
}

func (t *Table) mustOccupied(row types.Row, op string) {
	t.mustRow(row)
	if t.entities[row].IsNull() {
		panic(fmt.Sprintf("lattice: %s on tombstoned row %d", op, row))
	}
}

// RowIterator walks a table's occupied rows in ascending order.
type RowIterator struct {
	table *Table
	next  int
}

// HasNext returns true if there are more occupied rows to iterate over.
func (it *RowIterator) HasNext() bool {
	for it.next < it.table.capacity && it.table.entities[it.next].IsNull() {
		it.next++
	}
	return it.next < it.table.capacity
}

// Next returns the next occupied row.
func (it *RowIterator) Next() types.Row {
	row := types.Row(it.next)
	it.next++
	return row
}
