package lattice

import (
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

type RunMode string

const (
	RunModeDev  RunMode = "development"
	RunModeProd RunMode = "production"
)

const (
	DefaultNamespace     = "lattice"
	DefaultLogLevel      = "info"
	DefaultTableCapacity = 256
)

type WorldConfig struct {
	LatticeNamespace     string
	LatticeMode          RunMode
	LatticeLogLevel      string
	LatticeTableCapacity int
	LatticeStatsdAddress string
}

var defaultConfig = WorldConfig{
	LatticeNamespace:     DefaultNamespace,
	LatticeMode:          RunModeDev,
	LatticeLogLevel:      DefaultLogLevel,
	LatticeTableCapacity: DefaultTableCapacity,
	LatticeStatsdAddress: "",
}

func loadWorldConfig() (*WorldConfig, error) {
	cfg := defaultConfig
	cfg.LatticeNamespace = getEnv("LATTICE_NAMESPACE", cfg.LatticeNamespace)
	cfg.LatticeMode = RunMode(getEnv("LATTICE_MODE", string(cfg.LatticeMode)))
	cfg.LatticeLogLevel = getEnv("LATTICE_LOG_LEVEL", cfg.LatticeLogLevel)
	cfg.LatticeStatsdAddress = getEnv("LATTICE_STATSD_ADDRESS", cfg.LatticeStatsdAddress)
	if raw, ok := os.LookupEnv("LATTICE_TABLE_CAPACITY"); ok {
		capacity, err := strconv.Atoi(raw)
		if err != nil {
			return nil, eris.Wrap(err, "LATTICE_TABLE_CAPACITY must be an integer")
		}
		cfg.LatticeTableCapacity = capacity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (w WorldConfig) Validate() error {
	if w.LatticeMode != RunModeDev && w.LatticeMode != RunModeProd {
		return eris.Errorf("LATTICE_MODE must be %q or %q, got %q", RunModeDev, RunModeProd, w.LatticeMode)
	}
	if _, err := zerolog.ParseLevel(w.LatticeLogLevel); err != nil {
		return eris.Wrap(err, "LATTICE_LOG_LEVEL is not a valid zerolog level")
	}
	if w.LatticeTableCapacity < 1 {
		return eris.Errorf("LATTICE_TABLE_CAPACITY must be positive, got %d", w.LatticeTableCapacity)
	}
	if w.LatticeMode == RunModeProd && w.LatticeNamespace == DefaultNamespace {
		return eris.New("LATTICE_NAMESPACE must be set explicitly in production mode")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
