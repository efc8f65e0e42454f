package types

// ArchetypeID identifies one archetype within the registry. Archetypes are
// never deleted, so an ID stays valid for the life of the process.
type ArchetypeID int

// TableID identifies one table within its owning archetype, in allocation
// order.
type TableID int

// Row is an index into a table's parallel columns.
type Row int
