package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Fetch.ChunkSize != 100 {
		t.Errorf("chunk size = %d, want 100", cfg.Fetch.ChunkSize)
	}
	if cfg.Scheduler.Debounce != 200*time.Millisecond {
		t.Errorf("debounce = %v, want 200ms", cfg.Scheduler.Debounce)
	}
	if cfg.Overlay.LoadingFallback != 4*time.Second {
		t.Errorf("loading fallback = %v, want 4s", cfg.Overlay.LoadingFallback)
	}
	if cfg.Derived.Resolution != 0.5 {
		t.Errorf("derived resolution = %v, want 0.5", cfg.Derived.Resolution)
	}
	if cfg.Derived.ScreenW32 != float32(cfg.Screen.Width) {
		t.Errorf("derived width not computed")
	}
}

func TestLoadOverridesOnlyPresentKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte("grid:\n  resolution: 0.25\nfetch:\n  max_concurrent: 2\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Grid.Resolution != 0.25 {
		t.Errorf("resolution = %f, want 0.25", cfg.Grid.Resolution)
	}
	if cfg.Fetch.MaxConcurrent != 2 {
		t.Errorf("max concurrent = %d, want 2", cfg.Fetch.MaxConcurrent)
	}
	if cfg.Fetch.ChunkSize != 100 {
		t.Errorf("chunk size should keep its default, got %d", cfg.Fetch.ChunkSize)
	}
}

func TestLoadRejectsOversizedChunk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("fetch:\n  chunk_size: 250\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected chunk_size above the service limit to be rejected")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "secret")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Weather.APIKey != "secret" {
		t.Errorf("api key = %q, want env value", cfg.Weather.APIKey)
	}
}

func TestLookupTiers(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	radius := []struct {
		zoom float64
		want float64
	}{
		{12, 3}, {8, 3}, {7.9, 5}, {6, 5}, {5.5, 8}, {4, 10}, {-1, 10},
	}
	for _, tt := range radius {
		if got := Lookup(cfg.Scheduler.RadiusTiers, tt.zoom); got != tt.want {
			t.Errorf("radius at zoom %v = %v, want %v", tt.zoom, got, tt.want)
		}
	}

	expansion := map[float64]float64{9: 1.5, 7: 2.0, 3: 2.5}
	for zoom, want := range expansion {
		if got := Lookup(cfg.Scheduler.ExpansionTiers, zoom); got != want {
			t.Errorf("expansion at zoom %v = %v, want %v", zoom, got, want)
		}
	}
}

func TestParticleTierFor(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	low, lowIdx := cfg.Particles.ParticleTierFor(7)
	high, highIdx := cfg.Particles.ParticleTierFor(13)
	if lowIdx == highIdx {
		t.Fatal("zoom 7 and 13 should fall in different tiers")
	}
	if high.Density <= low.Density {
		t.Errorf("higher zoom should be denser: %v vs %v", high.Density, low.Density)
	}
	if _, idx := cfg.Particles.ParticleTierFor(9.5); idx == lowIdx {
		t.Error("zoom 9.5 should leave the lowest tier")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if again.Scheduler.Debounce != cfg.Scheduler.Debounce {
		t.Errorf("debounce lost in roundtrip: %v", again.Scheduler.Debounce)
	}
	if len(again.Particles.Tiers) != len(cfg.Particles.Tiers) {
		t.Errorf("tiers lost in roundtrip")
	}
}
