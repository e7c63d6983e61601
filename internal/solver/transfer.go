package solver

import "github.com/gogpu/pbmpm/internal/geom"

// minVertexMass is the mass below which a vertex is treated as empty.
const minVertexMass = 1e-5

// Scatter adds the contribution of p to the 3x3 neighbourhood of vertices
// around it. Vertices outside the grid are skipped on each axis.
func Scatter(p *Particle, g Grid, c *Constants) {
	width, height := g.Dims()
	w := geom.QuadraticWeights(p.Position)

	for dx := range 3 {
		for dy := range 3 {
			x, y := w.Neighbour(dx, dy)
			if x < 0 || x >= width || y < 0 || y >= height {
				continue
			}
			v := y*width + x

			weight := w.At(dx, dy)
			offset := w.Offset(dx, dy, p.Position)

			weightedMass := weight * p.Mass
			momentum := p.Displacement.Add(p.DeformationDisplacement.MulVec(offset)).Mul(weightedMass)

			g.Add(v, ChannelMomentumX, momentum.X)
			g.Add(v, ChannelMomentumY, momentum.Y)
			g.Add(v, ChannelMass, weightedMass)
			if c.UseGridVolumeForLiquid {
				g.Add(v, ChannelVolume, weight*p.Volume)
			}
		}
	}
}

// SolveVertex turns the momentum of vertex (x, y) into a displacement,
// resolves it against shapes and the guardian region, and stores it back in
// the momentum channels.
//
// If the displaced vertex falls outside the guardian on either axis both
// displacement components are zeroed.
func SolveVertex(x, y int, g Grid, shapes []Shape, c *Constants) {
	width, height := g.Dims()
	v := y*width + x

	var disp geom.Vec2
	if mass := g.Load(v, ChannelMass); mass >= minVertexMass {
		disp = geom.V2(g.Load(v, ChannelMomentumX)/mass, g.Load(v, ChannelMomentumY)/mass)
	}

	vertex := geom.V2(float32(x), float32(y))
	displaced := vertex.Add(disp)

	for i := range shapes {
		contact := geom.Collide(shapes[i], displaced)
		if !contact.Collides {
			continue
		}
		gap := min(0, contact.Normal.Dot(contact.Point.Sub(vertex)))
		penetration := contact.Normal.Dot(disp) - gap
		disp = disp.Sub(contact.Normal.Mul(max(penetration, 0)))
	}

	if geom.ProjectInsideGuardian(displaced, width, height, GuardianSize+1) != displaced {
		disp = geom.Vec2{}
	}

	g.Store(v, ChannelMomentumX, disp.X)
	g.Store(v, ChannelMomentumY, disp.Y)
}

// SolveGrid runs SolveVertex over every vertex.
func SolveGrid(g Grid, shapes []Shape, c *Constants) {
	width, height := g.Dims()
	for y := range height {
		for x := range width {
			SolveVertex(x, y, g, shapes, c)
		}
	}
}

// Gather reads the solved grid back into p. The stencil is evaluated at the
// same position Scatter used.
func Gather(p *Particle, g Grid, c *Constants) {
	width, height := g.Dims()
	w := geom.QuadraticWeights(p.Position)

	var b geom.Mat2
	var disp geom.Vec2
	var volume float32

	for dx := range 3 {
		for dy := range 3 {
			x, y := w.Neighbour(dx, dy)
			if x < 0 || x >= width || y < 0 || y >= height {
				continue
			}
			v := y*width + x

			weight := w.At(dx, dy)
			offset := w.Offset(dx, dy, p.Position)

			weighted := geom.V2(g.Load(v, ChannelMomentumX), g.Load(v, ChannelMomentumY)).Mul(weight)
			b = b.Add(geom.Outer(weighted, offset))
			disp = disp.Add(weighted)

			if c.UseGridVolumeForLiquid {
				volume += weight * g.Load(v, ChannelVolume)
			}
		}
	}

	// 4 is the inverse second moment of the quadratic kernel.
	p.DeformationDisplacement = b.Scale(4)
	p.Displacement = disp

	if c.UseGridVolumeForLiquid {
		volume = 1 / volume
		if volume < 1 {
			p.LiquidDensity = geom.Lerp(p.LiquidDensity, volume, 0.1)
		}
	}
}
