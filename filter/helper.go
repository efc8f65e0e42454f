package filter

import (
	"pkg.lattice.dev/lattice/types"
)

// MatchComponent returns true if the given slice of components contains the
// given component. Components are the same if they have the same Name.
func MatchComponent(
	components []types.Component,
	cType types.Component,
) bool {
	for _, c := range components {
		if cType.Name() == c.Name() {
			return true
		}
	}
	return false
}

// MatchComponentMetadata returns true if the given slice of components
// contains the given component. Components are the same if they have the same
// Name.
func MatchComponentMetadata(
	components []types.ComponentMetadata,
	cType types.ComponentMetadata,
) bool {
	for _, c := range components {
		if cType.Name() == c.Name() {
			return true
		}
	}
	return false
}

func unwrap(wrapped []ComponentWrapper) []types.Component {
	components := make([]types.Component, len(wrapped))
	for i, w := range wrapped {
		components[i] = w.Component
	}
	return components
}
