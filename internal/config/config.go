// Package config handles shaper configuration loading and management.
package config

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/deform"
	"github.com/soypat/deform/matter"
	"github.com/soypat/glgl/math/ms3"
)

// Config holds all shaper settings.
type Config struct {
	Modifiers ModifiersConfig `yaml:"modifiers"`
	Scale     ScaleConfig     `yaml:"scale"`
	Export    ExportConfig    `yaml:"export"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModifiersConfig holds the shape modifier values. Angles are in degrees.
type ModifiersConfig struct {
	TwistDeg float32 `yaml:"twist_deg"`
	BendDeg  float32 `yaml:"bend_deg"`
	Taper    float32 `yaml:"taper"`
}

// Params returns the modifiers in radians.
func (m ModifiersConfig) Params() deform.Params {
	const deg2rad = math32.Pi / 180
	return deform.Params{
		Twist: m.TwistDeg * deg2rad,
		Bend:  m.BendDeg * deg2rad,
		Taper: m.Taper,
	}
}

// ScaleConfig holds the user scale and the target dimensions in mesh units.
// A target of 0 leaves the axis unconstrained.
type ScaleConfig struct {
	User   [3]float32 `yaml:"user,flow"`
	Target [3]float32 `yaml:"target,flow"`
	// Material names the printing material whose shrinkage is compensated.
	// Empty disables compensation.
	Material string `yaml:"material"`
}

// Spec returns the scale configuration as a deform.ScaleSpec.
func (s ScaleConfig) Spec() deform.ScaleSpec {
	return deform.ScaleSpec{
		UserScale: ms3.Vec{X: s.User[0], Y: s.User[1], Z: s.User[2]},
		Target:    deform.TargetDims{X: s.Target[0], Y: s.Target[1], Z: s.Target[2]},
	}
}

// Export formats.
const (
	FormatBinary = "binary"
	FormatASCII  = "ascii"
)

// ExportConfig holds output file settings.
type ExportConfig struct {
	Format    string `yaml:"format"`     // binary or ascii STL
	SolidName string `yaml:"solid_name"` // ASCII STL solid name
	// Workers bounds bake parallelism. 0 uses all CPUs.
	Workers int `yaml:"workers"`
}

// SnapshotConfig holds PNG preview settings.
type SnapshotConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Supersample int    `yaml:"supersample"`
	Color       string `yaml:"color"`
	Background  string `yaml:"background"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Scale: ScaleConfig{
			User: [3]float32{1, 1, 1},
		},
		Export: ExportConfig{
			Format:    FormatBinary,
			SolidName: "shaped",
		},
		Snapshot: SnapshotConfig{
			Width:       800,
			Height:      600,
			Supersample: 2,
			Color:       "#468966",
			Background:  "#FFF8E3",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks values that would otherwise fail late or silently.
func (c *Config) Validate() error {
	for _, v := range []float32{c.Modifiers.TwistDeg, c.Modifiers.BendDeg, c.Modifiers.Taper} {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return errors.New("non-finite modifier value")
		}
	}
	for i, s := range c.Scale.User {
		if s == 0 || math32.IsNaN(s) || math32.IsInf(s, 0) {
			return fmt.Errorf("invalid user scale %g on axis %c", s, "xyz"[i])
		}
	}
	for i, d := range c.Scale.Target {
		if d < 0 || math32.IsNaN(d) || math32.IsInf(d, 0) {
			return fmt.Errorf("invalid target dimension %g on axis %c", d, "xyz"[i])
		}
	}
	if _, err := matter.ByName(c.Scale.Material); err != nil {
		return err
	}
	switch c.Export.Format {
	case FormatBinary, FormatASCII:
	default:
		return fmt.Errorf("unknown export format %q", c.Export.Format)
	}
	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 {
		return errors.New("snapshot size must be positive")
	}
	return nil
}
