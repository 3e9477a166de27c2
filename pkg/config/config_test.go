package config

import (
	"os"
	"path/filepath"
	"testing"

	"stss/pkg/scalespace"
)

// TestDefaultConfig verifies the defaults describe a valid ring-filter run
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config is invalid: %v", err)
	}

	if cfg.ScaleSpace.Gamma != scalespace.DefaultGamma {
		t.Errorf("Expected gamma %g, got %g", scalespace.DefaultGamma, cfg.ScaleSpace.Gamma)
	}
	if !cfg.ScaleSpace.RingFilter || !cfg.ScaleSpace.CorrectScale {
		t.Error("Expected ring filter and scale correction enabled by default")
	}
	if cfg.ScaleSpace.Truncate != 4.0 {
		t.Errorf("Expected truncate 4, got %g", cfg.ScaleSpace.Truncate)
	}
	if cfg.Processing.NumCores <= 0 {
		t.Errorf("Expected positive core count, got %d", cfg.Processing.NumCores)
	}
}

// TestLoadConfigMissingFile verifies a missing file yields the defaults
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(cfg.ScaleSpace.Sigmas) != len(DefaultConfig().ScaleSpace.Sigmas) {
		t.Errorf("Expected default sigmas, got %v", cfg.ScaleSpace.Sigmas)
	}
}

// TestLoadConfigOverrides verifies YAML values override the defaults they name
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stss.yaml")
	content := `scaleSpace:
  sigmas: [0.5, 1.5]
  rhos: [2, 3]
  ringFilter: false
  correctScale: false
  gamma: 1.0
output:
  dir: results
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Loaded config is invalid: %v", err)
	}

	p := cfg.ScaleSpaceParams()
	if len(p.Sigmas) != 2 || p.Sigmas[1] != 1.5 {
		t.Errorf("Unexpected sigmas %v", p.Sigmas)
	}
	if p.RingFilter || p.CorrectScale {
		t.Error("Expected ring filter and correction disabled")
	}
	if len(p.Rhos) != 2 || p.Rhos[0] != 2 {
		t.Errorf("Unexpected rhos %v", p.Rhos)
	}
	if p.Gamma != 1.0 {
		t.Errorf("Expected gamma 1, got %g", p.Gamma)
	}
	// Untouched keys keep their defaults
	if p.Truncate != 4.0 {
		t.Errorf("Expected default truncate, got %g", p.Truncate)
	}
	if cfg.Output.Dir != "results" {
		t.Errorf("Expected output dir results, got %q", cfg.Output.Dir)
	}
}

// TestValidate verifies inconsistent settings are reported
func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ScaleSpace.RingFilter = false
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for correction without ring filter")
	}

	cfg = DefaultConfig()
	cfg.ScaleSpace.CorrectScale = false
	cfg.ScaleSpace.RingFilter = false
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing rhos")
	}

	cfg = DefaultConfig()
	cfg.ScaleSpace.Sigmas = nil
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty sigmas")
	}
}

// TestCreateDefaultConfigFile verifies the written file loads back to the defaults
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stss.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	def := DefaultConfig()
	if len(cfg.ScaleSpace.Sigmas) != len(def.ScaleSpace.Sigmas) || cfg.Output.Dir != def.Output.Dir {
		t.Errorf("Loaded config differs from defaults: %+v", cfg)
	}
}
