package geom

import "github.com/chewxy/math32"

// SVDResult is the decomposition M = U · diag(Sigma) · Vt.
//
// U and Vt are proper rotations. Sigma.Y is negative when M reflects
// (det M < 0); callers that need non-negative singular values clamp.
type SVDResult struct {
	U     Mat2
	Sigma Vec2
	Vt    Mat2
}

// Reconstruct returns U · diag(Sigma) · Vt.
func (r SVDResult) Reconstruct() Mat2 {
	return r.U.Mul(Diag(r.Sigma)).Mul(r.Vt)
}

// SVD computes the closed-form singular value decomposition of a 2x2 matrix.
//
// M is split into a similarity part (E, H) and an anti-similarity part
// (F, G):
//
//	M = E·I + F·diag(1,-1) + G·[[0,1],[1,0]] + H·[[0,-1],[1,0]]
//
// The similarity part is Q·R(a2) and the anti-similarity part is a
// reflection scaled by R, which gives Sigma = (Q+R, Q-R) and the rotation
// angles (a2±a1)/2.
func SVD(m Mat2) SVDResult {
	e := (m.M00 + m.M11) * 0.5
	f := (m.M00 - m.M11) * 0.5
	g := (m.M01 + m.M10) * 0.5
	h := (m.M10 - m.M01) * 0.5

	q := math32.Sqrt(e*e + h*h)
	r := math32.Sqrt(f*f + g*g)

	a1 := math32.Atan2(g, f)
	a2 := math32.Atan2(h, e)

	theta := 0.5 * (a2 - a1)
	phi := 0.5 * (a2 + a1)

	return SVDResult{
		U:     Rotation(phi),
		Sigma: Vec2{X: q + r, Y: q - r},
		Vt:    Rotation(theta),
	}
}
