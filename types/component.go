package types

import (
	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"
)

type ComponentID int

// ErrComponentSchemaMismatch is returned when a component is re-registered
// with a layout that no longer matches its recorded schema.
var ErrComponentSchemaMismatch = eris.New("component schema does not match target schema")

// Component is the interface a user-defined struct must implement to be
// stored by the engine. Component values are fixed-size and relocated by raw
// value copy, so they must not contain pointers into themselves.
type Component interface {
	// Name returns the name of the component. Two component types with the
	// same name are treated as the same component.
	Name() string
}

// ComponentMetadata wraps a user-defined Component and carries everything the
// storage layer needs to lay the type out in a column: the engine-assigned
// ID, the type's fixed size and alignment, and codec/schema helpers used off
// the hot path.
type ComponentMetadata interface { //revive:disable-line:exported
	// SetID sets the ID of this component. It must only be set once.
	SetID(ComponentID) error
	// ID returns the ID of the component.
	ID() ComponentID
	// Size returns the byte size of one component value; a column cell is
	// exactly this wide.
	Size() uintptr
	// Align returns the alignment requirement of the component type.
	Align() uintptr
	// New returns the marshaled bytes of the default value for the component
	// struct.
	New() ([]byte, error)
	// EncodeRaw marshals the raw column bytes of one value to JSON.
	EncodeRaw(cell []byte) ([]byte, error)
	Encode(any) ([]byte, error)
	Decode([]byte) (any, error)
	GetSchema() []byte
	// ValidateAgainstSchema reports a mismatch between this component's
	// schema and a previously recorded one.
	ValidateAgainstSchema(targetSchema []byte) error

	Component
}

func SerializeComponentSchema(component Component) ([]byte, error) {
	componentSchema := jsonschema.Reflect(component)
	schema, err := componentSchema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}
	return schema, nil
}

func IsComponentValid(component Component, jsonSchemaBytes []byte) (bool, error) {
	componentSchema := jsonschema.Reflect(component)
	componentSchemaBytes, err := componentSchema.MarshalJSON()
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return IsSchemaValid(componentSchemaBytes, jsonSchemaBytes)
}

func IsSchemaValid(jsonSchemaBytes1 []byte, jsonSchemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(jsonSchemaBytes1, jsonSchemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}

// ConvertComponentMetadatasToComponents casts an array of ComponentMetadata
// into an array of Component.
func ConvertComponentMetadatasToComponents(comps []ComponentMetadata) []Component {
	ret := make([]Component, len(comps))
	for i, comp := range comps {
		ret[i] = comp
	}
	return ret
}
