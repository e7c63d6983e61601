package solver

import "github.com/gogpu/pbmpm/internal/geom"

// Shape is a static analytic collider.
type Shape = geom.Shape

// OffDomainShape returns the value of unused shape slots. It lies far
// outside any grid and never collides with a vertex or particle.
func OffDomainShape() Shape {
	return Shape{Kind: geom.ShapeCircle, Position: geom.V2(-100, -100)}
}

// NewCircle returns a circle collider.
func NewCircle(center geom.Vec2, radius float32) Shape {
	return Shape{Kind: geom.ShapeCircle, Position: center, Radius: radius}
}

// NewBox returns a box collider rotated by rotation degrees.
func NewBox(center, halfSize geom.Vec2, rotation float32) Shape {
	return Shape{Kind: geom.ShapeBox, Position: center, HalfSize: halfSize, Rotation: rotation}
}
