package solver

import (
	"fmt"

	"github.com/gogpu/pbmpm/internal/geom"
)

// Material selects the constitutive model of a particle.
type Material uint32

const (
	// Liquid relaxes toward incompressibility using LiquidDensity.
	Liquid Material = iota

	// Elastic returns to its rest shape.
	Elastic

	// Viscous yields once the deformation leaves the plasticity bound.
	Viscous

	// Sand follows a Drucker-Prager friction cone and tracks LogJp.
	Sand
)

// String returns the material name.
func (m Material) String() string {
	switch m {
	case Liquid:
		return "liquid"
	case Elastic:
		return "elastic"
	case Viscous:
		return "viscous"
	case Sand:
		return "sand"
	default:
		return fmt.Sprintf("Material(%d)", uint32(m))
	}
}

// ParseMaterial returns the material with the given name.
func ParseMaterial(s string) (Material, error) {
	for m := Liquid; m <= Sand; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("pbmpm: unknown material %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Material) UnmarshalText(text []byte) error {
	v, err := ParseMaterial(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Material) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Particle is a material point.
//
// Displacement is the positional change relaxed during the current step.
// DeformationDisplacement (ΔD) is the local affine correction relaxed each
// iteration, and DeformationGradient accumulates the total deformation.
type Particle struct {
	Position     geom.Vec2
	Displacement geom.Vec2
	Material     Material

	DeformationDisplacement geom.Mat2
	DeformationGradient     geom.Mat2

	// LiquidDensity is only used by Liquid.
	LiquidDensity float32

	// LogJp is the accumulated logarithmic plastic volume change of Sand.
	LogJp float32

	Mass   float32
	Volume float32
}

// NewParticle returns a particle at rest.
func NewParticle(pos geom.Vec2, material Material, mass float32) Particle {
	return Particle{
		Position:            pos,
		Material:            material,
		DeformationGradient: geom.Identity(),
		LiquidDensity:       1,
		LogJp:               1,
		Mass:                mass,
		Volume:              1,
	}
}
