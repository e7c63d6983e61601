package geom

import "github.com/chewxy/math32"

// Vec2 is a 2D vector in grid units. It is used both for positions and
// for displacements.
type Vec2 struct {
	X, Y float32
}

// V2 is a convenience function to create a Vec2.
func V2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

// Splat returns a vector with both components set to s.
func Splat(s float32) Vec2 {
	return Vec2{X: s, Y: s}
}

// Add returns the sum of two vectors.
func (v Vec2) Add(w Vec2) Vec2 {
	return Vec2{X: v.X + w.X, Y: v.Y + w.Y}
}

// Sub returns the difference of two vectors.
func (v Vec2) Sub(w Vec2) Vec2 {
	return Vec2{X: v.X - w.X, Y: v.Y - w.Y}
}

// Mul returns the vector scaled by a scalar.
func (v Vec2) Mul(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Neg returns the negation of the vector.
func (v Vec2) Neg() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

// Dot returns the dot product of two vectors.
func (v Vec2) Dot(w Vec2) float32 {
	return v.X*w.X + v.Y*w.Y
}

// Length returns the length (magnitude) of the vector.
func (v Vec2) Length() float32 {
	return math32.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Abs returns the component-wise absolute value.
func (v Vec2) Abs() Vec2 {
	return Vec2{X: math32.Abs(v.X), Y: math32.Abs(v.Y)}
}

// Floor returns the component-wise floor.
func (v Vec2) Floor() Vec2 {
	return Vec2{X: math32.Floor(v.X), Y: math32.Floor(v.Y)}
}

// Clamp clamps each component into [lo, hi].
func (v Vec2) Clamp(lo, hi Vec2) Vec2 {
	return Vec2{X: clamp(v.X, lo.X, hi.X), Y: clamp(v.Y, lo.Y, hi.Y)}
}

// Approx returns true if two vectors are approximately equal within epsilon.
func (v Vec2) Approx(w Vec2, epsilon float32) bool {
	return math32.Abs(v.X-w.X) < epsilon && math32.Abs(v.Y-w.Y) < epsilon
}

// IsZero returns true if the vector is the zero vector.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Sign returns -1, 0 or +1 with the sign of x.
func Sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func clamp(x, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, x))
}

// Clamp clamps x into [lo, hi].
func Clamp(x, lo, hi float32) float32 {
	return clamp(x, lo, hi)
}

// Lerp interpolates between a and b; t=0 returns a.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
