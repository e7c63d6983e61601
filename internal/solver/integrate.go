package solver

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/pbmpm/internal/geom"
)

const (
	minLiquidDensity = 0.1
	minSingularValue = 0.2
	maxSingularValue = 10000
	minLogStrain     = 1e-6
)

// Integrate finishes a step for p: it applies ΔD to the density or the
// deformation gradient, projects the gradient back onto the material's
// plastic bound, moves the particle and prepares next step's displacement.
func Integrate(p *Particle, shapes []Shape, c *Constants, dt float32) {
	if p.Material == Liquid {
		p.LiquidDensity *= p.DeformationDisplacement.Trace() + 1
		p.LiquidDensity = max(p.LiquidDensity, minLiquidDensity)
	} else {
		p.DeformationGradient = trialGradient(p)

		svd := geom.SVD(p.DeformationGradient)
		svd.Sigma = svd.Sigma.Clamp(geom.Splat(minSingularValue), geom.Splat(maxSingularValue))

		switch p.Material {
		case Sand:
			svd.Sigma = projectSand(p, svd.Sigma, c)
		case Viscous:
			svd.Sigma = projectViscous(svd.Sigma, c)
		}

		p.DeformationGradient = svd.Reconstruct()
	}

	p.Position = p.Position.Add(p.Displacement)
	p.Displacement.Y -= float32(c.GridHeight) * c.GravityStrength * dt * dt

	for i := range shapes {
		contact := geom.Collide(shapes[i], p.Position)
		if contact.Collides {
			p.Displacement = p.Displacement.Sub(contact.Normal.Mul(contact.Penetration))
		}
	}

	p.Position = geom.ProjectInsideGuardian(p.Position, c.GridWidth, c.GridHeight, GuardianSize)
}

// projectSand returns the singular values after the Drucker-Prager return
// mapping and updates p.LogJp.
func projectSand(p *Particle, sigma geom.Vec2, c *Constants) geom.Vec2 {
	sinPhi := math32.Sin(c.FrictionAngle / 180 * math32.Pi)
	alpha := math32.Sqrt(2.0/3.0) * 2 * sinPhi / (3 - sinPhi)

	abs := sigma.Abs()
	e := geom.V2(
		math32.Log(max(abs.X, minLogStrain)),
		math32.Log(max(abs.Y, minLogStrain)),
	)
	trace := e.X + e.Y + p.LogJp

	deviatoric := e.Sub(geom.Splat(trace / 2))
	norm := deviatoric.Length()

	if trace >= 0 {
		p.LogJp = 0.5 * trace
		return geom.Splat(1)
	}

	p.LogJp = 0
	deltaGamma := norm + (c.ElasticityRatio+1)*trace*alpha
	if deltaGamma <= 0 || norm == 0 {
		return sigma
	}

	h := e.Sub(e.Sub(geom.Splat(trace * 0.5)).Mul(deltaGamma / norm))
	return geom.V2(math32.Exp(h.X), math32.Exp(h.Y))
}

// projectViscous clamps the singular values into the yield band and
// rescales them to keep their product.
func projectViscous(sigma geom.Vec2, c *Constants) geom.Vec2 {
	yield := math32.Exp(1 - c.Plasticity)
	area := sigma.X * sigma.Y

	clamped := sigma.Clamp(geom.Splat(1/yield), geom.Splat(yield))
	return clamped.Mul(math32.Sqrt(area / (clamped.X * clamped.Y)))
}
