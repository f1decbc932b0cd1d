package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `mqtt:
  broker: "tcp://localhost:1883"
  client_id: "dispatch"
  username: "user"
  password: "pass"
pool:
  units_per_type: 5
  ttl_minutes: 15
api:
  addr: ":8081"
metrics:
  prometheus_enabled: true
seed:
  drivers:
    - id: "d1"
      name: "Dana"
      vehicle_type: "ambulance"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "dispatch"},
		{"submit_topic_default", cfg.MQTT.SubmitTopic, "rescue/requests/submit"},
		{"units_per_type", cfg.Pool.UnitsPerType, 5},
		{"ttl_minutes", cfg.Pool.TTLMinutes, 15},
		{"api_addr", cfg.API.Addr, ":8081"},
		{"prometheus_enabled", cfg.Metrics.PrometheusEnabled, true},
		{"prometheus_addr_default", cfg.Metrics.PrometheusAddr, ":9090"},
		{"seed_count", len(cfg.Seed.Drivers), 1},
		{"seed_available_default", *cfg.Seed.Drivers[0].Available, true},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	data := `{"pool": {"units_per_type": 3}}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Pool.UnitsPerType != 3 || cfg.Pool.TTLMinutes != 10 {
		t.Fatalf("unexpected pool config %+v", cfg.Pool)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  addr: \":8080\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RESQ_API__ADDR", ":9999")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.API.Addr != ":9999" {
		t.Fatalf("env override not applied: %s", cfg.API.Addr)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	if _, err := Load("config.toml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestLoadBadSeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "seed:\n  drivers:\n    - id: \"d1\"\n      vehicle_type: \"hovercraft\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown vehicle type")
	}
}

func TestSeedModelDrivers(t *testing.T) {
	avail := false
	c := SeedConfig{Drivers: []SeedDriver{
		{ID: "d1", Name: "Dana", VehicleType: "fireengine", Available: &avail},
	}}
	out := c.ModelDrivers()
	if len(out) != 1 || out[0].Name != "Dana" || out[0].Available {
		t.Fatalf("unexpected drivers %+v", out)
	}
}
