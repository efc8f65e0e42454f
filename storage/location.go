package storage

import (
	"pkg.lattice.dev/lattice/types"
)

// Location is the physical address of an entity's data: which archetype,
// which of its tables, which row. A Location is invalidated by any structural
// change to its entity and must be re-resolved through the EntityProvider
// rather than held across such a change.
type Location struct {
	ArchID  types.ArchetypeID
	TableID types.TableID
	Row     types.Row
}

// NewLocation creates a new Location.
func NewLocation(archID types.ArchetypeID, tableID types.TableID, row types.Row) Location {
	return Location{
		ArchID:  archID,
		TableID: tableID,
		Row:     row,
	}
}
