package geom

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"
)

// ShapeKind identifies the analytic form of a collider.
type ShapeKind uint32

const (
	// ShapeCircle is a disc defined by Position and Radius.
	ShapeCircle ShapeKind = iota

	// ShapeBox is a rectangle defined by Position, HalfSize and Rotation.
	ShapeBox
)

// String returns the shape kind name.
func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeBox:
		return "box"
	default:
		return "unknown"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ShapeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "circle":
		*k = ShapeCircle
	case "box":
		*k = ShapeBox
	default:
		return fmt.Errorf("pbmpm: unknown shape kind %q", text)
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (k ShapeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Shape is a static analytic collider.
//
// Rotation is in degrees. A box's local frame is obtained from world space
// by Rotation(Rotation), i.e. the box itself is turned clockwise by
// Rotation degrees.
type Shape struct {
	Kind     ShapeKind `yaml:"kind"`
	Position Vec2      `yaml:"position"`
	Radius   float32   `yaml:"radius"`
	Rotation float32   `yaml:"rotation"`
	HalfSize Vec2      `yaml:"halfSize"`
}

// Contact is the result of a collision query.
type Contact struct {
	// Collides reports whether the query point is inside the shape.
	Collides bool

	// Penetration is the depth of the point below the surface.
	Penetration float32

	// Normal is a unit vector. Callers subtract Penetration·Normal to
	// resolve the contact.
	Normal Vec2

	// Point is the nearest point on the shape surface.
	Point Vec2
}

const degToRad = math.Pi / 180

// Collide tests point p against shape s.
//
// For circles the normal points from p toward the centre and Penetration
// is Radius minus the distance, so a point on the boundary collides with
// zero depth. For boxes the colliding axis is the one with the smaller
// local penetration (ties go to x) and the contact requires a strictly
// positive depth.
func Collide(s Shape, p Vec2) Contact {
	switch s.Kind {
	case ShapeCircle:
		return collideCircle(s, p)
	case ShapeBox:
		return collideBox(s, p)
	default:
		return Contact{}
	}
}

func collideCircle(s Shape, p Vec2) Contact {
	offset := s.Position.Sub(p)
	dist := offset.Length()

	var normal Vec2
	if dist != 0 {
		normal = offset.Mul(1 / dist)
	}

	return Contact{
		Collides:    dist <= s.Radius,
		Penetration: s.Radius - dist,
		Normal:      normal,
		Point:       s.Position.Add(normal.Mul(s.Radius)),
	}
}

func collideBox(s Shape, p Vec2) Contact {
	offset := p.Sub(s.Position)
	r := Rotation(s.Rotation * degToRad)
	local := r.MulVec(offset)

	pen := s.HalfSize.Sub(local.Abs())

	var axis Vec2
	if pen.Y < pen.X {
		axis = Vec2{Y: Sign(local.Y)}
	} else {
		axis = Vec2{X: Sign(local.X)}
	}

	toWorld := r.Transpose()
	minPen := math32.Min(pen.X, pen.Y)
	nearest := local.Clamp(s.HalfSize.Neg(), s.HalfSize)

	return Contact{
		Collides:    minPen > 0,
		Penetration: minPen,
		Normal:      toWorld.MulVec(axis).Neg(),
		Point:       s.Position.Add(toWorld.MulVec(nearest)),
	}
}
