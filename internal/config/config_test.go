package config

import "testing"

func TestLoadMemoryDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("default port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreDriver != DriverMemory {
		t.Errorf("driver = %q", cfg.StoreDriver)
	}
}

func TestLoadFirestoreRequiresProject(t *testing.T) {
	t.Setenv("STORE_DRIVER", "firestore")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	if _, err := Load(); err == nil {
		t.Fatal("missing GOOGLE_CLOUD_PROJECT accepted")
	}

	t.Setenv("GOOGLE_CLOUD_PROJECT", "demo-project")
	t.Setenv("PORT", "9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ProjectID != "demo-project" || cfg.Port != "9000" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoadUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
