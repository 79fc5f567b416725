package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/banshee-data/dance.report/internal/calibration"
	"github.com/banshee-data/dance.report/internal/catalog"
	"github.com/banshee-data/dance.report/internal/compare"
	"github.com/banshee-data/dance.report/internal/timeline"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for scoring parameters.
// Every field is optional; the Get* methods supply defaults for anything
// left unset, so partial configs are safe.
type TuningConfig struct {
	// Comparator params
	Variant             *string  `json:"variant,omitempty" toml:"variant"` // "3d" or "2d"
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" toml:"confidence_threshold"`
	OcclusionPenalty    *float64 `json:"occlusion_penalty,omitempty" toml:"occlusion_penalty"`

	// Angles replaces the built-in catalog when non-empty.
	Angles []catalog.AngleSpec `json:"angles,omitempty" toml:"angles"`

	// Calibration params
	SuccessThreshold    *float64  `json:"success_threshold,omitempty" toml:"success_threshold"`
	MaxWindow           *string   `json:"max_window,omitempty" toml:"max_window"`       // duration string like "2s"
	MinEventGap         *string   `json:"min_event_gap,omitempty" toml:"min_event_gap"` // duration string like "300ms"
	MatchTolerance      *string   `json:"match_tolerance,omitempty" toml:"match_tolerance"`
	CalibrationOffsetMs *float64  `json:"calibration_offset_ms,omitempty" toml:"calibration_offset_ms"`
	Events              []float64 `json:"events,omitempty" toml:"events"`

	// Diagnostics params
	WeakJointThreshold *float64 `json:"weak_joint_threshold,omitempty" toml:"weak_joint_threshold"`
	MappingMaxDiff     *string  `json:"mapping_max_diff,omitempty" toml:"mapping_max_diff"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON or TOML file.
// The file is validated to ensure it has a .json or .toml extension and is
// under the max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".toml" {
		return nil, fmt.Errorf("config file must have .json or .toml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	cfg := EmptyTuningConfig()
	if ext == ".toml" {
		md, err := toml.DecodeFile(cleanPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown config keys: %v", undecoded)
		}
	} else {
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.Variant != nil {
		if _, err := compare.ParseVariant(*c.Variant); err != nil {
			return err
		}
	}

	if c.ConfidenceThreshold != nil {
		if *c.ConfidenceThreshold < 0 || *c.ConfidenceThreshold > 1 {
			return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", *c.ConfidenceThreshold)
		}
	}

	if c.SuccessThreshold != nil {
		if *c.SuccessThreshold < 0 || *c.SuccessThreshold > 100 {
			return fmt.Errorf("success_threshold must be between 0 and 100, got %f", *c.SuccessThreshold)
		}
	}

	durations := []struct {
		name string
		val  *string
	}{
		{"max_window", c.MaxWindow},
		{"min_event_gap", c.MinEventGap},
		{"match_tolerance", c.MatchTolerance},
		{"mapping_max_diff", c.MappingMaxDiff},
	}
	for _, d := range durations {
		if d.val == nil || *d.val == "" {
			continue
		}
		v, err := time.ParseDuration(*d.val)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", d.name, *d.val, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", d.name, v)
		}
	}

	if len(c.Angles) > 0 {
		if _, err := catalog.New(c.Angles); err != nil {
			return fmt.Errorf("invalid angles: %w", err)
		}
	}

	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def // default on parse error
	}
	return d
}

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// GetVariant returns the comparison variant or the default (3d).
func (c *TuningConfig) GetVariant() compare.Variant {
	if c.Variant == nil {
		return compare.Variant3D
	}
	v, err := compare.ParseVariant(*c.Variant)
	if err != nil {
		return compare.Variant3D
	}
	return v
}

// GetConfidenceThreshold returns the confidence_threshold value or the default.
func (c *TuningConfig) GetConfidenceThreshold() float64 {
	if c.ConfidenceThreshold == nil {
		return 0.1
	}
	return *c.ConfidenceThreshold
}

// GetOcclusionPenalty returns the occlusion_penalty value or the default.
func (c *TuningConfig) GetOcclusionPenalty() float64 {
	if c.OcclusionPenalty == nil {
		return -10
	}
	return *c.OcclusionPenalty
}

// GetSuccessThreshold returns the success_threshold value or the default.
func (c *TuningConfig) GetSuccessThreshold() float64 {
	if c.SuccessThreshold == nil {
		return 95
	}
	return *c.SuccessThreshold
}

// GetMaxWindow parses and returns the MaxWindow as a time.Duration.
func (c *TuningConfig) GetMaxWindow() time.Duration {
	return durationOr(c.MaxWindow, 2*time.Second)
}

// GetMinEventGap parses and returns the MinEventGap as a time.Duration.
func (c *TuningConfig) GetMinEventGap() time.Duration {
	return durationOr(c.MinEventGap, 300*time.Millisecond)
}

// GetMatchTolerance parses and returns the MatchTolerance as a time.Duration.
func (c *TuningConfig) GetMatchTolerance() time.Duration {
	return durationOr(c.MatchTolerance, calibration.DefaultMatchToleranceMs*time.Millisecond)
}

// GetMappingMaxDiff parses and returns the MappingMaxDiff as a time.Duration.
func (c *TuningConfig) GetMappingMaxDiff() time.Duration {
	return durationOr(c.MappingMaxDiff, timeline.DefaultMaxMappingDiffMs*time.Millisecond)
}

// GetCalibrationOffsetMs returns the stored calibration offset, zero if unset.
func (c *TuningConfig) GetCalibrationOffsetMs() float64 {
	if c.CalibrationOffsetMs == nil {
		return 0
	}
	return *c.CalibrationOffsetMs
}

// GetWeakJointThreshold returns the weak_joint_threshold value or the default.
func (c *TuningConfig) GetWeakJointThreshold() float64 {
	if c.WeakJointThreshold == nil {
		return 40
	}
	return *c.WeakJointThreshold
}

// GetEvents returns the calibration cue times or the built-in routine's.
func (c *TuningConfig) GetEvents() []float64 {
	if len(c.Events) == 0 {
		return append([]float64(nil), calibration.DefaultEvents...)
	}
	return append([]float64(nil), c.Events...)
}

// Catalog builds the angle catalog, falling back to the built-in one.
func (c *TuningConfig) Catalog() (*catalog.Catalog, error) {
	if len(c.Angles) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Angles)
}

// ComparatorConfig assembles the comparator settings.
func (c *TuningConfig) ComparatorConfig() compare.Config {
	return compare.Config{
		Variant:             c.GetVariant(),
		ConfidenceThreshold: c.GetConfidenceThreshold(),
		OcclusionPenalty:    c.GetOcclusionPenalty(),
	}
}

// Comparator builds a comparator from the catalog and comparator settings.
func (c *TuningConfig) Comparator() (*compare.Comparator, error) {
	cat, err := c.Catalog()
	if err != nil {
		return nil, err
	}
	return compare.NewComparator(cat, c.ComparatorConfig()), nil
}

// DelayConfig assembles the threshold-crossing estimator settings.
func (c *TuningConfig) DelayConfig() calibration.DelayConfig {
	return calibration.DelayConfig{
		Threshold:     c.GetSuccessThreshold(),
		MaxWindowMs:   millis(c.GetMaxWindow()),
		MinEventGapMs: millis(c.GetMinEventGap()),
	}
}

// MatchToleranceMs returns the best-match tolerance in milliseconds.
func (c *TuningConfig) MatchToleranceMs() float64 { return millis(c.GetMatchTolerance()) }

// MappingMaxDiffMs returns the timestamp mapping bound in milliseconds.
func (c *TuningConfig) MappingMaxDiffMs() float64 { return millis(c.GetMappingMaxDiff()) }
