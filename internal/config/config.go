package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverFirestore = "firestore"
	DriverMemory    = "memory"
)

type Config struct {
	Port            string `env:"PORT" env-default:"8080"`
	StoreDriver     string `env:"STORE_DRIVER" env-default:"firestore"`
	ProjectID       string `env:"GOOGLE_CLOUD_PROJECT"`
	CredentialsFile string `env:"FIRESTORE_CREDENTIALS_FILE"`
}

// Load reads configuration from the environment. GOOGLE_CLOUD_PROJECT is
// required unless the in-memory store driver is selected.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %v", err)
	}

	switch cfg.StoreDriver {
	case DriverFirestore:
		if cfg.ProjectID == "" {
			return Config{}, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}
