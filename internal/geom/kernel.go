package geom

// Weights holds the quadratic B-spline interpolation stencil of a point.
//
// Cell is the lower-left vertex of the 3x3 neighbourhood. W[i] holds the
// weights of neighbour offset i along x (W[i].X) and y (W[i].Y).
type Weights struct {
	Cell [2]int
	W    [3]Vec2
}

// QuadraticWeights computes the 3x3 stencil weights for pos.
//
// With d the offset of pos from the centre of its cell, in [-0.5, 0.5),
// the weights along an axis are ½(½-d)², ¾-d² and ½(½+d)²; they sum to 1.
func QuadraticWeights(pos Vec2) Weights {
	cell := pos.Floor()
	d := pos.Sub(cell).Sub(Splat(0.5))

	lo := Splat(0.5).Sub(d)
	hi := Splat(0.5).Add(d)

	return Weights{
		Cell: [2]int{int(cell.X) - 1, int(cell.Y) - 1},
		W: [3]Vec2{
			{X: 0.5 * lo.X * lo.X, Y: 0.5 * lo.Y * lo.Y},
			{X: 0.75 - d.X*d.X, Y: 0.75 - d.Y*d.Y},
			{X: 0.5 * hi.X * hi.X, Y: 0.5 * hi.Y * hi.Y},
		},
	}
}

// At returns the combined weight of neighbour (dx, dy).
func (w *Weights) At(dx, dy int) float32 {
	return w.W[dx].X * w.W[dy].Y
}

// Neighbour returns the grid vertex of neighbour (dx, dy).
func (w *Weights) Neighbour(dx, dy int) (x, y int) {
	return w.Cell[0] + dx, w.Cell[1] + dy
}

// Offset returns the vector from pos to the centre of neighbour (dx, dy)'s
// cell, the lever arm used by the affine transfer.
func (w *Weights) Offset(dx, dy int, pos Vec2) Vec2 {
	x, y := w.Neighbour(dx, dy)
	return Vec2{X: float32(x) - pos.X + 0.5, Y: float32(y) - pos.Y + 0.5}
}
