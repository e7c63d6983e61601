package solver

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/pbmpm/internal/geom"
)

// Relax nudges the deformation displacement of p toward the target of its
// material. It reads nothing but p and c.
func Relax(p *Particle, c *Constants) {
	switch p.Material {
	case Liquid:
		dampShear(p, c.LiquidViscosity)

		alpha := 0.5 * (1/p.LiquidDensity - p.DeformationDisplacement.Trace() - 1)
		p.DeformationDisplacement = p.DeformationDisplacement.Add(geom.Identity().Scale(c.LiquidRelaxation * alpha))

	case Elastic, Viscous:
		f := trialGradient(p)
		svd := geom.SVD(f)
		rotation := svd.U.Mul(svd.Vt)
		relaxToward(p, c, rotation, volumeNormalized(f, 0.1, 1000))

	case Sand:
		f := trialGradient(p)
		svd := geom.SVD(f)
		if p.LogJp == 0 {
			svd.Sigma = svd.Sigma.Clamp(geom.Splat(1), geom.Splat(1000))
		}
		relaxToward(p, c, svd.Reconstruct(), volumeNormalized(f, 0.1, 1))
		dampShear(p, c.LiquidViscosity)
	}
}

// trialGradient returns (I+ΔD)·F.
func trialGradient(p *Particle) geom.Mat2 {
	return geom.Identity().Add(p.DeformationDisplacement).Mul(p.DeformationGradient)
}

// volumeNormalized scales f to unit |det| after clamping |det f| into
// [lo, hi]. A singular f keeps a positive sign.
func volumeNormalized(f geom.Mat2, lo, hi float32) geom.Mat2 {
	det := f.Det()
	sign := geom.Sign(det)
	if sign == 0 {
		sign = 1
	}
	clamped := geom.Clamp(math32.Abs(det), lo, hi)
	return f.Scale(1 / (sign * math32.Sqrt(clamped)))
}

// relaxToward blends the shape-preserving target with the volume
// normalised trial gradient by ElasticityRatio and moves ΔD toward the
// displacement that reaches it.
func relaxToward(p *Particle, c *Constants, shape, normalized geom.Mat2) {
	ratio := c.ElasticityRatio
	target := shape.Scale(ratio).Add(normalized.Scale(1 - ratio))

	goal := target.Mul(p.DeformationGradient.Inverse()).Sub(geom.Identity())
	diff := goal.Sub(p.DeformationDisplacement)
	p.DeformationDisplacement = p.DeformationDisplacement.Add(diff.Scale(c.ElasticRelaxation))
}

// dampShear removes viscosity/2 of the symmetric part of ΔD.
func dampShear(p *Particle, viscosity float32) {
	deviatoric := p.DeformationDisplacement.Symmetric().Scale(-1)
	p.DeformationDisplacement = p.DeformationDisplacement.Add(deviatoric.Scale(viscosity * 0.5))
}
