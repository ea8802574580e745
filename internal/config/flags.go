package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// Flags holds command line overrides. Only flags present on the command
// line override file and default values.
type Flags struct {
	fs         *flag.FlagSet
	configPath string
	twist      float64
	bend       float64
	taper      float64
	scale      vec3Value
	target     vec3Value
	material   string
	format     string
	solidName  string
	workers    int
	debug      bool
	logFile    string
	width      int
	height     int
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	fs.Float64Var(&f.twist, "twist", 0, "Twist in degrees at the top of the mesh")
	fs.Float64Var(&f.bend, "bend", 0, "Bend in degrees between bottom and top")
	fs.Float64Var(&f.taper, "taper", 0, "Taper factor, about -1..1")
	fs.Var(&f.scale, "scale", "User scale as x,y,z or a single uniform value")
	fs.Var(&f.target, "target", "Target dimensions as x,y,z in mesh units, 0 leaves an axis free")
	fs.StringVar(&f.material, "material", "", "Compensate shrinkage of a printing material: pla, petg, abs or none")
	fs.StringVar(&f.format, "format", "", "Export format: binary or ascii")
	fs.StringVar(&f.solidName, "solid", "", "Solid name of ASCII STL output")
	fs.IntVar(&f.workers, "workers", 0, "Bake goroutines, 0 uses all CPUs")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.logFile, "log", "", "Also log to this file with rotation")
	fs.IntVar(&f.width, "width", 0, "Snapshot width in pixels")
	fs.IntVar(&f.height, "height", 0, "Snapshot height in pixels")
	return f
}

// ConfigPath returns the explicit config path if provided via -config flag.
func (f *Flags) ConfigPath() string {
	return f.configPath
}

// apply applies the flags set on the command line to cfg.
func (f *Flags) apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "twist":
			cfg.Modifiers.TwistDeg = float32(f.twist)
		case "bend":
			cfg.Modifiers.BendDeg = float32(f.bend)
		case "taper":
			cfg.Modifiers.Taper = float32(f.taper)
		case "scale":
			cfg.Scale.User = f.scale.v
		case "target":
			cfg.Scale.Target = f.target.v
		case "material":
			cfg.Scale.Material = f.material
		case "format":
			cfg.Export.Format = f.format
		case "solid":
			cfg.Export.SolidName = f.solidName
		case "workers":
			cfg.Export.Workers = f.workers
		case "debug":
			if f.debug {
				cfg.Logging.Level = "debug"
			}
		case "log":
			cfg.Logging.LogFile = f.logFile
		case "width":
			cfg.Snapshot.Width = f.width
		case "height":
			cfg.Snapshot.Height = f.height
		}
	})
}

// vec3Value is a flag.Value holding three comma separated floats.
// A single value is applied to all axes.
type vec3Value struct {
	v [3]float32
}

func (v *vec3Value) String() string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g,%g", v.v[0], v.v[1], v.v[2])
}

func (v *vec3Value) Set(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) != 1 && len(parts) != 3 {
		return fmt.Errorf("want 1 or 3 comma separated values, got %d", len(parts))
	}
	var got [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return err
		}
		got[i] = float32(f)
	}
	if len(parts) == 1 {
		got[1], got[2] = got[0], got[0]
	}
	v.v = got
	return nil
}
