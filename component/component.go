package component

import (
	"reflect"
	"unsafe"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"pkg.lattice.dev/lattice/codec"
	"pkg.lattice.dev/lattice/types"
)

// Interface guard
var _ types.ComponentMetadata = (*componentMetadata[types.Component])(nil)

// Option is a type that can be passed to NewComponentMetadata to augment the
// creation of the component type.
type Option[T types.Component] func(c *componentMetadata[T])

// WithDefault sets the default value reported by New for the component type.
func WithDefault[T types.Component](defaultVal T) Option[T] {
	return func(c *componentMetadata[T]) {
		c.defaultVal = defaultVal
		c.hasDefault = true
	}
}

// componentMetadata represents a type of component. It is used to identify a
// component when getting or setting the component of an entity, and carries
// the fixed size and alignment the storage layer lays columns out with.
type componentMetadata[T types.Component] struct {
	isIDSet    bool
	id         types.ComponentID
	compType   reflect.Type
	name       string
	size       uintptr
	align      uintptr
	schema     []byte
	defaultVal T
	hasDefault bool
}

// NewComponentMetadata creates the metadata record for a component type. The
// component must be a plain value type: its size and alignment are captured
// here and every column cell for it is relocated by raw byte copy.
func NewComponentMetadata[T types.Component](opts ...Option[T]) (
	types.ComponentMetadata, error,
) {
	var t T
	compType := reflect.TypeOf(t)
	if compType.Kind() == reflect.Pointer {
		return nil, eris.Errorf("component %q must be a value type, not a pointer", t.Name())
	}

	schema, err := jsonschema.ReflectFromType(compType).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "component must be json serializable")
	}

	compMetadata := &componentMetadata[T]{
		compType: compType,
		name:     t.Name(),
		size:     unsafe.Sizeof(t),
		align:    unsafe.Alignof(t),
		schema:   schema,
	}
	for _, opt := range opts {
		opt(compMetadata)
	}

	return compMetadata, nil
}

func (c *componentMetadata[T]) GetSchema() []byte {
	return c.schema
}

// SetID sets this component's ID. It must be unique across the world object.
func (c *componentMetadata[T]) SetID(id types.ComponentID) error {
	if c.isIDSet {
		// Components are registered once on startup. In tests it is useful to
		// reuse the same component in multiple worlds, so re-setting the same
		// ID is allowed.
		if id == c.id {
			return nil
		}
		return eris.Errorf("id for component %v is already set to %v, cannot change to %v", c, c.id, id)
	}
	c.id = id
	c.isIDSet = true
	return nil
}

// String returns the component type name.
func (c *componentMetadata[T]) String() string {
	return c.name
}

// Name returns the component type name.
func (c *componentMetadata[T]) Name() string {
	return c.name
}

// ID returns the component type id.
func (c *componentMetadata[T]) ID() types.ComponentID {
	return c.id
}

// Size returns the byte width of one column cell for this component.
func (c *componentMetadata[T]) Size() uintptr {
	return c.size
}

// Align returns the alignment requirement of the component type.
func (c *componentMetadata[T]) Align() uintptr {
	return c.align
}

func (c *componentMetadata[T]) New() ([]byte, error) {
	if c.hasDefault {
		return codec.Encode(c.defaultVal)
	}
	var t T
	return codec.Encode(t)
}

func (c *componentMetadata[T]) Encode(v any) ([]byte, error) {
	return codec.Encode(v)
}

func (c *componentMetadata[T]) Decode(bz []byte) (any, error) {
	return codec.Decode[T](bz)
}

// EncodeRaw reinterprets one column cell as a value of this component type
// and marshals it. Used by debug state dumps only.
func (c *componentMetadata[T]) EncodeRaw(cell []byte) ([]byte, error) {
	if uintptr(len(cell)) < c.size {
		return nil, eris.Errorf("cell for component %q is %d bytes, want %d", c.name, len(cell), c.size)
	}
	if c.size == 0 {
		var t T
		return codec.Encode(t)
	}
	value := *(*T)(unsafe.Pointer(&cell[0]))
	return codec.Encode(value)
}

func (c *componentMetadata[T]) ValidateAgainstSchema(targetSchema []byte) error {
	diff, err := jsondiff.CompareJSON(c.schema, targetSchema)
	if err != nil {
		return eris.Wrap(err, "failed to compare component schema")
	}

	if diff.String() != "" {
		return eris.Wrap(types.ErrComponentSchemaMismatch, diff.String())
	}

	return nil
}
