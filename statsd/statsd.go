// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so if we decide to migrate away from
// datadog in the future, we only need to edit this single file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitQueryStat reports the wall time of one query iteration pass.
func EmitQueryStat(start time.Time) {
	duration := time.Since(start)
	err := Client().Timing("query", duration, nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit query stat: %v", err)
	}
}

// EmitStructuralChange counts one structural change of the given kind
// (create, destroy, add_component, remove_component).
func EmitStructuralChange(kind string) {
	err := Client().Count("structural_change", 1, []string{kind}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit structural change stat: %v", err)
	}
}

// EmitArchetypeCreated counts the lazy creation of an archetype.
func EmitArchetypeCreated() {
	err := Client().Count("archetype_created", 1, nil, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit archetype stat: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("lattice"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	// Success! replace the global client
	client = newClient
	return nil
}
