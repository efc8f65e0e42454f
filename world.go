package lattice

import (
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"pkg.lattice.dev/lattice/component"
	"pkg.lattice.dev/lattice/filter"
	ecslog "pkg.lattice.dev/lattice/log"
	"pkg.lattice.dev/lattice/query"
	"pkg.lattice.dev/lattice/statsd"
	"pkg.lattice.dev/lattice/storage"
	"pkg.lattice.dev/lattice/types"
)

// World ties the storage engine together: the component manager, the
// archetype registry, and the entity provider. It is the consumer-facing
// surface for entity lifecycle, structural change, and query construction.
//
// A World is single-threaded: no method may be called concurrently with any
// other, and structural changes raised while a query iteration is in
// progress must go through a CommandBuffer.
type World struct {
	namespace  string
	mode       RunMode
	logger     zerolog.Logger
	components *component.Manager
	registry   *storage.Registry
	entities   *storage.EntityProvider
}

// NewWorld creates a world from the environment configuration, adjusted by
// the given options.
func NewWorld(opts ...WorldOption) (*World, error) {
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, eris.Wrap(err, "failed to load config to start world")
	}
	for _, opt := range opts {
		if opt.configOption != nil {
			opt.configOption(cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LatticeLogLevel)
	if err != nil {
		return nil, eris.Wrap(err, "invalid log level")
	}

	w := &World{
		namespace:  cfg.LatticeNamespace,
		mode:       cfg.LatticeMode,
		logger:     zerologlog.Logger.Level(level).With().Str("namespace", cfg.LatticeNamespace).Logger(),
		components: component.NewManager(),
	}
	for _, opt := range opts {
		if opt.worldOption != nil {
			opt.worldOption(w)
		}
	}
	w.registry = storage.NewRegistry(cfg.LatticeTableCapacity, &w.logger)
	w.entities = storage.NewEntityProvider(w.registry, &w.logger)

	if cfg.LatticeStatsdAddress != "" {
		if err := statsd.Init(cfg.LatticeStatsdAddress, []string{"namespace:" + cfg.LatticeNamespace}); err != nil {
			return nil, eris.Wrap(err, "failed to init statsd client")
		}
	}

	w.logger.Info().
		Str("mode", string(cfg.LatticeMode)).
		Int("table_capacity", cfg.LatticeTableCapacity).
		Msg("created world")
	return w, nil
}

func (w *World) Namespace() string {
	return w.namespace
}

func (w *World) Mode() RunMode {
	return w.mode
}

func (w *World) Logger() *zerolog.Logger {
	return &w.logger
}

// GetRegisteredComponents returns the metadata of every registered
// component.
func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	return w.components.GetComponents()
}

// LogComponents logs the registered component set at the given level.
func (w *World) LogComponents(level zerolog.Level) {
	ecslog.Components(&w.logger, w, level)
}

// Create allocates a new entity with no components. The returned handle
// stays valid until Destroy, no matter how the entity's data moves.
func (w *World) Create() (types.Entity, error) {
	return w.entities.Create()
}

// Destroy removes the entity and invalidates every copy of its handle.
// Returns ErrStaleEntity if the handle is already dead.
func (w *World) Destroy(entity types.Entity) error {
	return w.entities.Destroy(entity)
}

// IsAlive reports whether the handle still names a live entity.
func (w *World) IsAlive(entity types.Entity) bool {
	return w.entities.IsAlive(entity)
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.entities.Count()
}

// NewQuery starts building a query over this world's entities.
func (w *World) NewQuery() *query.Builder {
	return query.NewBuilder(w.components, w.registry, w.entities)
}

// NewCommandBuffer returns an empty buffer for queueing structural changes
// that cannot be applied immediately, typically because a query iteration is
// in progress.
func (w *World) NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{world: w}
}

// State dumps every live entity with its component values encoded as JSON.
// Intended for debugging and tests, not the hot path.
func (w *World) State() (types.EntityStateResponse, error) {
	state := types.EntityStateResponse{}
	for it := w.registry.SearchFrom(filter.All(), 0); it.HasNext(); {
		arch := w.registry.Archetype(it.Next())
		for _, table := range arch.Tables() {
			if table.LiveCount() == 0 {
				continue
			}
			for rows := table.OccupiedRows(); rows.HasNext(); {
				row := rows.Next()
				element := types.EntityStateElement{
					Entity:     table.Entity(row),
					Components: map[string]json.RawMessage{},
				}
				for _, comp := range arch.Components() {
					bz, err := comp.EncodeRaw(table.Component(comp.ID(), row))
					if err != nil {
						return nil, err
					}
					element.Components[comp.Name()] = bz
				}
				state = append(state, element)
			}
		}
	}
	return state, nil
}
