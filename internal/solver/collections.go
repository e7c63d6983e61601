package solver

import "errors"

// Capacity errors.
var (
	// ErrParticleCapacity is returned when the particle store is full.
	ErrParticleCapacity = errors.New("pbmpm: particle capacity reached")

	// ErrShapeCapacity is returned when the shape store is full.
	ErrShapeCapacity = errors.New("pbmpm: shape capacity reached")

	// ErrShapeIndex is returned by UpdateShape for a slot that was never
	// handed out by AddShape.
	ErrShapeIndex = errors.New("pbmpm: shape index out of range")
)

// Default capacities.
const (
	DefaultParticleCapacity = 1000
	DefaultShapeCapacity    = 10
)

// Collections holds the particles and shapes of one simulation. Both stores
// are append-only and bounded; storage is allocated once.
//
// Collections is not safe for concurrent use.
type Collections struct {
	particles []Particle
	shapes    []Shape
}

// NewCollections allocates stores of the given capacities. Non-positive
// capacities select the defaults.
func NewCollections(particleCapacity, shapeCapacity int) *Collections {
	if particleCapacity <= 0 {
		particleCapacity = DefaultParticleCapacity
	}
	if shapeCapacity <= 0 {
		shapeCapacity = DefaultShapeCapacity
	}
	return &Collections{
		particles: make([]Particle, 0, particleCapacity),
		shapes:    make([]Shape, 0, shapeCapacity),
	}
}

// AddParticle appends p. At capacity the store is left unchanged and
// ErrParticleCapacity is returned.
func (c *Collections) AddParticle(p Particle) error {
	if len(c.particles) == cap(c.particles) {
		return ErrParticleCapacity
	}
	c.particles = append(c.particles, p)
	return nil
}

// AddShape appends s and returns its slot.
func (c *Collections) AddShape(s Shape) (int, error) {
	if len(c.shapes) == cap(c.shapes) {
		return -1, ErrShapeCapacity
	}
	c.shapes = append(c.shapes, s)
	return len(c.shapes) - 1, nil
}

// UpdateShape overwrites slot index.
func (c *Collections) UpdateShape(index int, s Shape) error {
	if index < 0 || index >= len(c.shapes) {
		return ErrShapeIndex
	}
	c.shapes[index] = s
	return nil
}

// Particles returns the live particle slice. It aliases the store.
func (c *Collections) Particles() []Particle { return c.particles }

// Shapes returns the live shape slice. It aliases the store.
func (c *Collections) Shapes() []Shape { return c.shapes }

// ParticleCount returns the number of particles.
func (c *Collections) ParticleCount() int { return len(c.particles) }

// ShapeCount returns the number of shapes.
func (c *Collections) ShapeCount() int { return len(c.shapes) }

// ParticleCapacity returns the particle bound.
func (c *Collections) ParticleCapacity() int { return cap(c.particles) }

// ShapeCapacity returns the shape bound.
func (c *Collections) ShapeCapacity() int { return cap(c.shapes) }
