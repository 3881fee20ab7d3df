// Package config loads and validates scanner configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/S-SB/gp-tag-mobile/detector"
	"github.com/S-SB/gp-tag-mobile/pose"
	"github.com/S-SB/gp-tag-mobile/scan"
)

// Threshold strategy names accepted in the configuration file.
const (
	ThresholdFixed     = string(scan.StrategyFixed)
	ThresholdGlobal    = string(scan.StrategyGlobal)
	ThresholdReference = string(scan.StrategyReference)
)

// Config is the full scanner configuration.
type Config struct {
	HTTPPort    int `yaml:"httpPort"`
	MetricsPort int `yaml:"metricsPort"`

	WorkersNum       int `yaml:"workersNum"`
	IdleTimeoutMs    int `yaml:"idleTimeoutMs"`
	DetectIntervalMs int `yaml:"detectIntervalMs"`

	// Threshold selects how sampled luminance is quantized: fixed, global
	// or reference. FixedCut only applies to the fixed strategy.
	Threshold string  `yaml:"threshold"`
	FixedCut  float64 `yaml:"fixedCut"`

	Detector Detector `yaml:"detector"`
	Camera   Camera   `yaml:"camera"`
	Registry Registry `yaml:"registry"`
}

// Detector holds the candidate-detection tuning knobs.
type Detector struct {
	TemplateUnit     int     `yaml:"templateUnit"`
	MaxCandidates    int     `yaml:"maxCandidates"`
	FASTThreshold    int     `yaml:"fastThreshold"`
	MaxFeatures      int     `yaml:"maxFeatures"`
	RANSACIterations int     `yaml:"ransacIterations"`
	InlierThreshold  float64 `yaml:"inlierThreshold"`
	MinInliers       int     `yaml:"minInliers"`
}

// Camera is the pinhole intrinsics of the frame source, in pixels.
type Camera struct {
	Fx float64 `yaml:"fx"`
	Fy float64 `yaml:"fy"`
	Cx float64 `yaml:"cx"`
	Cy float64 `yaml:"cy"`
}

// Registry configures optional heartbeat registration with a coordination
// server.
type Registry struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Default returns the configuration used when a field is absent from the
// file.
func Default() Config {
	det := detector.DefaultConfig()
	return Config{
		HTTPPort:         8080,
		MetricsPort:      9100,
		WorkersNum:       1,
		IdleTimeoutMs:    1000,
		DetectIntervalMs: 1000,
		Threshold:        ThresholdReference,
		FixedCut:         128,
		Detector: Detector{
			TemplateUnit:     det.TemplateUnit,
			MaxCandidates:    det.MaxCandidates,
			FASTThreshold:    det.Extractor.FASTThreshold,
			MaxFeatures:      det.Extractor.MaxFeatures,
			RANSACIterations: det.RANSAC.Iterations,
			InlierThreshold:  det.RANSAC.InlierThreshold,
			MinInliers:       det.RANSAC.MinInliers,
		},
		Camera: Camera{
			Fx: pose.DefaultIntrinsics.Fx,
			Fy: pose.DefaultIntrinsics.Fy,
			Cx: pose.DefaultIntrinsics.Cx,
			Cy: pose.DefaultIntrinsics.Cy,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that would only fail later, per frame.
func (c Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid httpPort %d", c.HTTPPort)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("config: invalid metricsPort %d", c.MetricsPort)
	}
	if c.WorkersNum <= 0 {
		return fmt.Errorf("config: workersNum must be positive, got %d", c.WorkersNum)
	}
	if c.IdleTimeoutMs <= 0 {
		return fmt.Errorf("config: idleTimeoutMs must be positive, got %d", c.IdleTimeoutMs)
	}
	if c.DetectIntervalMs < 0 {
		return fmt.Errorf("config: detectIntervalMs must not be negative, got %d", c.DetectIntervalMs)
	}
	switch c.Threshold {
	case ThresholdFixed, ThresholdGlobal, ThresholdReference:
	default:
		return fmt.Errorf("config: unknown threshold strategy %q", c.Threshold)
	}
	if c.Threshold == ThresholdFixed && (c.FixedCut <= 0 || c.FixedCut >= 255) {
		return fmt.Errorf("config: fixedCut must be inside (0, 255), got %v", c.FixedCut)
	}
	d := c.Detector
	if d.TemplateUnit <= 0 || d.MaxCandidates <= 0 || d.FASTThreshold <= 0 ||
		d.MaxFeatures <= 0 || d.RANSACIterations <= 0 || d.InlierThreshold <= 0 ||
		d.MinInliers < 4 {
		return fmt.Errorf("config: invalid detector tuning %+v", d)
	}
	if c.Camera.Fx <= 0 || c.Camera.Fy <= 0 {
		return fmt.Errorf("config: camera focal lengths must be positive")
	}
	if c.Registry.Enabled {
		if c.Registry.Host == "" {
			return fmt.Errorf("config: registry enabled without host")
		}
		if c.Registry.Port <= 0 || c.Registry.Port > 65535 {
			return fmt.Errorf("config: invalid registry port %d", c.Registry.Port)
		}
	}
	return nil
}

// DetectorConfig translates the tuning section into a detector.Config.
func (c Config) DetectorConfig() detector.Config {
	out := detector.DefaultConfig()
	out.TemplateUnit = c.Detector.TemplateUnit
	out.MaxCandidates = c.Detector.MaxCandidates
	out.Extractor.FASTThreshold = c.Detector.FASTThreshold
	out.Extractor.MaxFeatures = c.Detector.MaxFeatures
	out.RANSAC.Iterations = c.Detector.RANSACIterations
	out.RANSAC.InlierThreshold = c.Detector.InlierThreshold
	out.RANSAC.MinInliers = c.Detector.MinInliers
	return out
}

// ScanConfig translates the detector tuning and threshold strategy into a
// reader configuration.
func (c Config) ScanConfig() scan.Config {
	return scan.Config{
		Detector: c.DetectorConfig(),
		Strategy: scan.Strategy(c.Threshold),
		FixedCut: c.FixedCut,
	}
}

// Intrinsics translates the camera section into pose intrinsics.
func (c Config) Intrinsics() pose.Intrinsics {
	return pose.Intrinsics{Fx: c.Camera.Fx, Fy: c.Camera.Fy, Cx: c.Camera.Cx, Cy: c.Camera.Cy}
}
