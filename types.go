package pbmpm

import (
	"github.com/gogpu/pbmpm/internal/geom"
	"github.com/gogpu/pbmpm/internal/solver"
)

// Vec2 is a 2D vector in grid units.
type Vec2 = geom.Vec2

// Mat2 is a row-major 2x2 matrix.
type Mat2 = geom.Mat2

// V2 returns the vector (x, y).
func V2(x, y float32) Vec2 { return geom.V2(x, y) }

// Particle is a material point. See NewParticle.
type Particle = solver.Particle

// Material selects the constitutive model of a particle.
type Material = solver.Material

// Materials.
const (
	Liquid  = solver.Liquid
	Elastic = solver.Elastic
	Viscous = solver.Viscous
	Sand    = solver.Sand
)

// ParseMaterial returns the material with the given name.
func ParseMaterial(s string) (Material, error) { return solver.ParseMaterial(s) }

// NewParticle returns a particle at rest with unit density and volume.
func NewParticle(pos Vec2, material Material, mass float32) Particle {
	return solver.NewParticle(pos, material, mass)
}

// Shape is a static analytic collider.
type Shape = geom.Shape

// ShapeKind identifies the form of a Shape.
type ShapeKind = geom.ShapeKind

// Shape kinds.
const (
	ShapeCircle = geom.ShapeCircle
	ShapeBox    = geom.ShapeBox
)

// NewCircle returns a circle collider.
func NewCircle(center Vec2, radius float32) Shape { return solver.NewCircle(center, radius) }

// NewBox returns a box collider. Rotation is in degrees.
func NewBox(center, halfSize Vec2, rotation float32) Shape {
	return solver.NewBox(center, halfSize, rotation)
}

// OffDomainShape returns the placeholder used for unused shape slots.
func OffDomainShape() Shape { return solver.OffDomainShape() }

// Constants holds the tunable parameters of a simulation.
type Constants = solver.Constants

// GuardianSize is the thickness in cells of the boundary region.
const GuardianSize = solver.GuardianSize

// DefaultConstants returns a stable parameter set for a 64x64 grid.
func DefaultConstants() Constants { return solver.DefaultConstants() }

// Errors shared by all backends.
var (
	ErrParticleCapacity = solver.ErrParticleCapacity
	ErrShapeCapacity    = solver.ErrShapeCapacity
	ErrShapeIndex       = solver.ErrShapeIndex
	ErrInvalidConstants = solver.ErrInvalidConstants
)
