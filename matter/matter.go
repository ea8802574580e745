// Package matter compensates mesh scale for the shrinkage of 3D printing
// materials, so that a part printed at a target dimension measures that
// dimension once cooled.
package matter

import (
	"fmt"
	"strings"

	"github.com/soypat/deform"
	"github.com/soypat/glgl/math/ms3"
)

var (
	// PLA (polylactic acid) is the most widely used plastic filament material in 3D printing.
	PLA = ViscousMaterial{Name: "pla", Shrink: 0.2e-2} // 0.2% shrinkage
	// PETG shrinks slightly more than PLA.
	PETG = ViscousMaterial{Name: "petg", Shrink: 0.4e-2}
	// ABS shrinks noticeably while cooling.
	ABS = ViscousMaterial{Name: "abs", Shrink: 0.7e-2}
)

// ViscousMaterial is a printing material characterized by its linear thermal shrinkage.
type ViscousMaterial struct {
	Name string
	// Shrink is the thermal contraction shrinkage of a material once the material
	// cools to room temperature after the heated bed is turned off.
	Shrink float32
}

// ByName returns the material preset with the given case insensitive name.
// The empty string and "none" return a material without shrinkage.
func ByName(name string) (ViscousMaterial, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return ViscousMaterial{Name: "none"}, nil
	case PLA.Name:
		return PLA, nil
	case PETG.Name:
		return PETG, nil
	case ABS.Name:
		return ABS, nil
	}
	return ViscousMaterial{}, fmt.Errorf("unknown material %q", name)
}

// Factor returns the uniform scale that compensates the shrinkage.
func (m ViscousMaterial) Factor() float32 {
	return 1 / (1 - m.Shrink)
}

// Compensate returns spec with its user scale enlarged by the shrink factor.
// Target dimensions are kept so they describe the cooled part.
func (m ViscousMaterial) Compensate(spec deform.ScaleSpec) deform.ScaleSpec {
	spec.UserScale = ms3.Scale(m.Factor(), spec.UserScale)
	return spec
}
