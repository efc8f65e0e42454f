package component

import (
	"fmt"

	"github.com/rotisserie/eris"

	"pkg.lattice.dev/lattice/types"
)

var ErrComponentNotRegistered = eris.New("component not registered")

// Manager owns the name -> metadata mapping and assigns component IDs. It is
// the component-registration collaborator of the storage engine: everything
// downstream works with the IDs and sizes recorded here.
type Manager struct {
	registeredComponents map[string]types.ComponentMetadata
	componentsByID       map[types.ComponentID]types.ComponentMetadata
	schemas              map[string][]byte
	nextComponentID      types.ComponentID
}

// NewManager creates a new component manager.
func NewManager() *Manager {
	return &Manager{
		registeredComponents: make(map[string]types.ComponentMetadata),
		componentsByID:       make(map[types.ComponentID]types.ComponentMetadata),
		schemas:              make(map[string][]byte),
		nextComponentID:      1,
	}
}

// RegisterComponent registers component with the component manager.
// There can only be one component with a given name, which is declared by the
// user by implementing the Name() method. Registering a second component
// under an already-used name is an error unless its schema is identical.
func (m *Manager) RegisterComponent(compMetadata types.ComponentMetadata) error {
	if _, ok := m.registeredComponents[compMetadata.Name()]; ok {
		return eris.Errorf("component %q is already registered", compMetadata.Name())
	}

	storedSchema, ok := m.schemas[compMetadata.Name()]
	if ok {
		// A schema was recorded for this name in a previous world using the
		// same manager; the new component must match it exactly.
		if err := compMetadata.ValidateAgainstSchema(storedSchema); err != nil {
			if eris.Is(eris.Cause(err), types.ErrComponentSchemaMismatch) {
				return eris.Wrap(err,
					fmt.Sprintf("component %q does not match its recorded schema", compMetadata.Name()),
				)
			}
			return eris.Wrap(err, "error when validating component schema against recorded schema")
		}
	} else {
		m.schemas[compMetadata.Name()] = compMetadata.GetSchema()
	}

	if err := compMetadata.SetID(m.nextComponentID); err != nil {
		return err
	}
	m.registeredComponents[compMetadata.Name()] = compMetadata
	m.componentsByID[compMetadata.ID()] = compMetadata
	m.nextComponentID++

	return nil
}

// GetComponents returns a list of all registered components.
// Note: The order of the components in the list is not deterministic.
func (m *Manager) GetComponents() []types.ComponentMetadata {
	registeredComponents := make([]types.ComponentMetadata, 0, len(m.registeredComponents))
	for _, comp := range m.registeredComponents {
		registeredComponents = append(registeredComponents, comp)
	}
	return registeredComponents
}

// GetComponentByName returns the component metadata for the given component name.
func (m *Manager) GetComponentByName(name string) (types.ComponentMetadata, error) {
	c, ok := m.registeredComponents[name]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotRegistered, fmt.Sprintf("component %q is not registered", name))
	}
	return c, nil
}

// GetComponentByID returns the component metadata for the given component ID.
func (m *Manager) GetComponentByID(id types.ComponentID) (types.ComponentMetadata, error) {
	c, ok := m.componentsByID[id]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotRegistered, fmt.Sprintf("component id %d is not registered", id))
	}
	return c, nil
}
