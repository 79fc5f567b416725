package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/dance.report/internal/catalog"
	"github.com/banshee-data/dance.report/internal/compare"
)

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetVariant() != compare.Variant3D {
		t.Errorf("GetVariant() = %q, want 3d", cfg.GetVariant())
	}
	if cfg.GetConfidenceThreshold() != 0.1 {
		t.Errorf("GetConfidenceThreshold() = %f, want 0.1", cfg.GetConfidenceThreshold())
	}
	if cfg.GetOcclusionPenalty() != -10 {
		t.Errorf("GetOcclusionPenalty() = %f, want -10", cfg.GetOcclusionPenalty())
	}
	if cfg.GetMaxWindow() != 2*time.Second {
		t.Errorf("GetMaxWindow() = %v, want 2s", cfg.GetMaxWindow())
	}
	if cfg.GetMinEventGap() != 300*time.Millisecond {
		t.Errorf("GetMinEventGap() = %v, want 300ms", cfg.GetMinEventGap())
	}
	if cfg.MatchToleranceMs() != 500 {
		t.Errorf("MatchToleranceMs() = %f, want 500", cfg.MatchToleranceMs())
	}
	if cfg.MappingMaxDiffMs() != 1000 {
		t.Errorf("MappingMaxDiffMs() = %f, want 1000", cfg.MappingMaxDiffMs())
	}
	if cfg.GetWeakJointThreshold() != 40 {
		t.Errorf("GetWeakJointThreshold() = %f, want 40", cfg.GetWeakJointThreshold())
	}
	if len(cfg.GetEvents()) != 9 {
		t.Errorf("Expected 9 default events, got %d", len(cfg.GetEvents()))
	}

	dc := cfg.DelayConfig()
	if dc.Threshold != 95 || dc.MaxWindowMs != 2000 || dc.MinEventGapMs != 300 {
		t.Errorf("unexpected delay config %+v", dc)
	}

	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	if cat != catalog.Default() {
		t.Error("Expected built-in catalog when no angles are configured")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.Variant == nil || *cfg.Variant != "3d" {
		t.Errorf("Expected variant 3d, got %v", cfg.Variant)
	}
	if cfg.MaxWindow == nil || *cfg.MaxWindow != "2s" {
		t.Errorf("Expected max_window 2s, got %v", cfg.MaxWindow)
	}
	if cfg.ComparatorConfig() != compare.DefaultConfig() {
		t.Errorf("defaults file comparator config %+v differs from compare.DefaultConfig", cfg.ComparatorConfig())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "variant": "2d",
  "confidence_threshold": 0.3,
  "max_window": "1500ms",
  "calibration_offset_ms": 180,
  "angles": [
    {"name": "knee", "keypoints": ["left_hip", "left_knee", "left_ankle"], "weight": 2}
  ]
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetVariant() != compare.Variant2D {
		t.Errorf("Expected variant 2d, got %q", cfg.GetVariant())
	}
	if cfg.ConfidenceThreshold == nil || *cfg.ConfidenceThreshold != 0.3 {
		t.Errorf("Expected ConfidenceThreshold 0.3, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.DelayConfig().MaxWindowMs != 1500 {
		t.Errorf("Expected MaxWindowMs 1500, got %f", cfg.DelayConfig().MaxWindowMs)
	}
	if cfg.GetCalibrationOffsetMs() != 180 {
		t.Errorf("Expected calibration offset 180, got %f", cfg.GetCalibrationOffsetMs())
	}
	// Unset fields fall back to defaults.
	if cfg.GetOcclusionPenalty() != -10 {
		t.Errorf("Expected default occlusion penalty, got %f", cfg.GetOcclusionPenalty())
	}

	cmp, err := cfg.Comparator()
	if err != nil {
		t.Fatalf("Comparator() error: %v", err)
	}
	if cmp.Catalog().Len() != 1 {
		t.Errorf("Expected a single-angle catalog, got %d", cmp.Catalog().Len())
	}
}

func TestLoadTuningConfigTOML(t *testing.T) {
	cfg, err := LoadTuningConfig("../../config/tuning.example.toml")
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}
	if cfg.GetVariant() != compare.Variant2D {
		t.Errorf("Expected variant 2d, got %q", cfg.GetVariant())
	}
	if cfg.GetSuccessThreshold() != 90 {
		t.Errorf("Expected success threshold 90, got %f", cfg.GetSuccessThreshold())
	}
	cat, err := cfg.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error: %v", err)
	}
	if cat.TotalWeight() != 4 {
		t.Errorf("Expected total weight 4, got %f", cat.TotalWeight())
	}
}

func TestLoadTuningConfigTOMLUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("noise_relative = 0.4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadTuningConfig(path)
	if err == nil || !strings.Contains(err.Error(), "unknown config keys") {
		t.Errorf("Expected unknown key error, got %v", err)
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"wrong extension", write("c.yaml", "{}")},
		{"missing file", filepath.Join(tmpDir, "missing.json")},
		{"bad json", write("bad.json", "{")},
		{"bad variant", write("variant.json", `{"variant": "4d"}`)},
		{"bad threshold", write("thr.json", `{"confidence_threshold": 1.5}`)},
		{"bad success threshold", write("succ.json", `{"success_threshold": -1}`)},
		{"bad duration", write("dur.json", `{"max_window": "soon"}`)},
		{"negative duration", write("neg.json", `{"match_tolerance": "-1s"}`)},
		{"bad angle", write("angle.json", `{"angles": [{"name": "x", "keypoints": ["left_hip", "tail", "left_ankle"], "weight": 1}]}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadTuningConfig(tt.path); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}

	t.Run("unknown keypoint is wrapped", func(t *testing.T) {
		_, err := LoadTuningConfig(filepath.Join(tmpDir, "angle.json"))
		if !errors.Is(err, catalog.ErrUnknownKeypoint) {
			t.Errorf("Expected ErrUnknownKeypoint, got %v", err)
		}
	})
}

func TestLoadTuningConfigTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.json")
	big := make([]byte, 1024*1024+1)
	for i := range big {
		big[i] = ' '
	}
	if err := os.WriteFile(path, big, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTuningConfig(path); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}
}

func TestGetDurationParseFallback(t *testing.T) {
	cfg := &TuningConfig{MaxWindow: ptrString("nonsense"), WeakJointThreshold: ptrFloat64(25)}
	if cfg.GetMaxWindow() != 2*time.Second {
		t.Errorf("Expected fallback 2s, got %v", cfg.GetMaxWindow())
	}
	if cfg.GetWeakJointThreshold() != 25 {
		t.Errorf("Expected 25, got %f", cfg.GetWeakJointThreshold())
	}
}
