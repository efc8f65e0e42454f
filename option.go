package lattice

import (
	"os"

	"github.com/rs/zerolog"
)

// WorldOption represents an option that can be used to augment how the World
// will be constructed. Options override whatever the environment provided.
type WorldOption struct {
	configOption func(*WorldConfig)
	worldOption  func(*World)
}

// WithNamespace sets the World's namespace. The default is "lattice". The
// namespace tags every log event and metric the world emits.
func WithNamespace(namespace string) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.LatticeNamespace = namespace
		},
	}
}

// WithTableCapacity sets the fixed row capacity of every storage table. The
// default is 256. Smaller tables waste less space in sparsely populated
// archetypes; larger tables give longer sequential runs per column.
func WithTableCapacity(capacity int) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.LatticeTableCapacity = capacity
		},
	}
}

// WithMode sets the world's run mode.
func WithMode(mode RunMode) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.LatticeMode = mode
		},
	}
}

// WithStatsdAddress enables metric emission to the given statsd agent.
func WithStatsdAddress(address string) WorldOption {
	return WorldOption{
		configOption: func(cfg *WorldConfig) {
			cfg.LatticeStatsdAddress = address
		},
	}
}

// WithLoggingLevel sets the world logger's level, overriding
// LATTICE_LOG_LEVEL.
func WithLoggingLevel(level zerolog.Level) WorldOption {
	return WorldOption{
		worldOption: func(w *World) {
			w.logger = w.logger.Level(level)
		},
	}
}

// WithPrettyLog enables human-readable console logging instead of the
// default structured JSON.
func WithPrettyLog() WorldOption {
	return WorldOption{
		worldOption: func(w *World) {
			w.logger = w.logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		},
	}
}
