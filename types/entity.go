package types

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Entity is the stable handle to one logical object. The Index is a slot in
// the entity provider's record table; the Generation disambiguates reuse of
// that slot. An Entity never points at component storage directly.
type Entity struct {
	Index      uint32 `json:"index"`
	Generation uint32 `json:"generation"`
}

// Null is the sentinel written into a table's entity column to tombstone a
// row. It is never handed out as a live handle.
var Null = Entity{Index: math.MaxUint32}

func (e Entity) IsNull() bool {
	return e.Index == math.MaxUint32
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.Index, e.Generation)
}

type EntityStateResponse []EntityStateElement

type EntityStateElement struct {
	Entity     Entity                     `json:"entity"`
	Components map[string]json.RawMessage `json:"components"`
}
