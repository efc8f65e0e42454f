package filter

import (
	"pkg.lattice.dev/lattice/types"
)

type exact struct {
	components []types.Component
}

// Exact matches archetypes that contain exactly the components specified.
func Exact(components ...ComponentWrapper) ComponentFilter {
	return exact{
		components: unwrap(components),
	}
}

func (f exact) MatchesComponents(components []types.Component) bool {
	if len(components) != len(f.components) {
		return false
	}
	for _, componentType := range components {
		if !MatchComponent(f.components, componentType) {
			return false
		}
	}
	return true
}
