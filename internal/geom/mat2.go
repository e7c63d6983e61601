package geom

import "github.com/chewxy/math32"

// Mat2 is a 2x2 matrix in row-major order:
//
//	| M00  M01 |
//	| M10  M11 |
//
// MulVec applies it to a column vector:
//
//	x' = M00*x + M01*y
//	y' = M10*x + M11*y
type Mat2 struct {
	M00, M01 float32
	M10, M11 float32
}

// Identity returns the identity matrix.
func Identity() Mat2 {
	return Mat2{M00: 1, M11: 1}
}

// Diag returns a diagonal matrix with d on the diagonal.
func Diag(d Vec2) Mat2 {
	return Mat2{M00: d.X, M11: d.Y}
}

// Outer returns the outer product x·yᵗ, so that element (i, j) is x[i]*y[j].
func Outer(x, y Vec2) Mat2 {
	return Mat2{
		M00: x.X * y.X, M01: x.X * y.Y,
		M10: x.Y * y.X, M11: x.Y * y.Y,
	}
}

// Rotation returns the counter-clockwise rotation by angle radians.
func Rotation(angle float32) Mat2 {
	sin, cos := math32.Sincos(angle)
	return Mat2{
		M00: cos, M01: -sin,
		M10: sin, M11: cos,
	}
}

// Add returns m + o.
func (m Mat2) Add(o Mat2) Mat2 {
	return Mat2{
		M00: m.M00 + o.M00, M01: m.M01 + o.M01,
		M10: m.M10 + o.M10, M11: m.M11 + o.M11,
	}
}

// Sub returns m - o.
func (m Mat2) Sub(o Mat2) Mat2 {
	return Mat2{
		M00: m.M00 - o.M00, M01: m.M01 - o.M01,
		M10: m.M10 - o.M10, M11: m.M11 - o.M11,
	}
}

// Scale returns m with every element multiplied by s.
func (m Mat2) Scale(s float32) Mat2 {
	return Mat2{
		M00: m.M00 * s, M01: m.M01 * s,
		M10: m.M10 * s, M11: m.M11 * s,
	}
}

// Mul returns the matrix product m * o.
func (m Mat2) Mul(o Mat2) Mat2 {
	return Mat2{
		M00: m.M00*o.M00 + m.M01*o.M10,
		M01: m.M00*o.M01 + m.M01*o.M11,
		M10: m.M10*o.M00 + m.M11*o.M10,
		M11: m.M10*o.M01 + m.M11*o.M11,
	}
}

// MulVec returns m * v.
func (m Mat2) MulVec(v Vec2) Vec2 {
	return Vec2{
		X: m.M00*v.X + m.M01*v.Y,
		Y: m.M10*v.X + m.M11*v.Y,
	}
}

// Transpose returns mᵗ.
func (m Mat2) Transpose() Mat2 {
	return Mat2{
		M00: m.M00, M01: m.M10,
		M10: m.M01, M11: m.M11,
	}
}

// Det returns the determinant.
func (m Mat2) Det() float32 {
	return m.M00*m.M11 - m.M01*m.M10
}

// Trace returns the sum of the diagonal.
func (m Mat2) Trace() float32 {
	return m.M00 + m.M11
}

// Inverse returns m⁻¹. The result is not finite for a singular matrix;
// callers keep the determinant away from zero.
func (m Mat2) Inverse() Mat2 {
	inv := 1 / m.Det()
	return Mat2{
		M00: m.M11 * inv, M01: -m.M01 * inv,
		M10: -m.M10 * inv, M11: m.M00 * inv,
	}
}

// Symmetric returns m + mᵗ.
func (m Mat2) Symmetric() Mat2 {
	return m.Add(m.Transpose())
}

// Approx returns true if all elements of m and o differ by less than epsilon.
func (m Mat2) Approx(o Mat2, epsilon float32) bool {
	return math32.Abs(m.M00-o.M00) < epsilon &&
		math32.Abs(m.M01-o.M01) < epsilon &&
		math32.Abs(m.M10-o.M10) < epsilon &&
		math32.Abs(m.M11-o.M11) < epsilon
}

// MaxAbs returns the largest absolute element.
func (m Mat2) MaxAbs() float32 {
	return math32.Max(
		math32.Max(math32.Abs(m.M00), math32.Abs(m.M01)),
		math32.Max(math32.Abs(m.M10), math32.Abs(m.M11)),
	)
}
