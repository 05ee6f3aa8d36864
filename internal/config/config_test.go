package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Name != "market-service" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if cfg.Postgres.MigrationsDir != "migrations" {
		t.Fatalf("migrations dir = %q", cfg.Postgres.MigrationsDir)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Service != "market-service" {
		t.Fatalf("logger = %+v", cfg.Logger)
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	t.Setenv("APP_NAME", "market-service-canary")
	t.Setenv("POSTGRES_MIGRATIONS_DIR", "db/migrations")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.MigrationsDir != "db/migrations" {
		t.Fatalf("migrations dir = %q", cfg.Postgres.MigrationsDir)
	}
	if cfg.Logger.Service != "market-service-canary" || cfg.Logger.Level != "debug" {
		t.Fatalf("logger = %+v", cfg.Logger)
	}
}
