package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/pbmpm/internal/geom"
	"github.com/gogpu/pbmpm/internal/solver"
)

// Device buffer record sizes in bytes. Every field is a 32-bit scalar so
// the host layout matches the WGSL structs without padding.
const (
	ParticleSize = 17 * 4
	ShapeSize    = 7 * 4
	ParamsSize   = 16 * 4
)

// params is the uniform block shared by all kernels of one step.
type params struct {
	GridWidth     uint32
	GridHeight    uint32
	ParticleCount uint32
	ShapeCount    uint32

	DeltaTime         float32
	GravityStrength   float32
	LiquidViscosity   float32
	LiquidRelaxation  float32
	ElasticityRatio   float32
	ElasticRelaxation float32
	FrictionAngle     float32
	Plasticity        float32

	UseGridVolumeForLiquid uint32
	FixedPointMultiplier   float32
	Iterations             uint32
	FixedPointExponent     uint32
}

func newParams(c *solver.Constants, particles, shapes int, dt float32) params {
	var useVolume uint32
	if c.UseGridVolumeForLiquid {
		useVolume = 1
	}
	//nolint:gosec // counts and grid sizes are validated non-negative
	return params{
		GridWidth:              uint32(c.GridWidth),
		GridHeight:             uint32(c.GridHeight),
		ParticleCount:          uint32(particles),
		ShapeCount:             uint32(shapes),
		DeltaTime:              dt,
		GravityStrength:        c.GravityStrength,
		LiquidViscosity:        c.LiquidViscosity,
		LiquidRelaxation:       c.LiquidRelaxation,
		ElasticityRatio:        c.ElasticityRatio,
		ElasticRelaxation:      c.ElasticRelaxation,
		FrictionAngle:          c.FrictionAngle,
		Plasticity:             c.Plasticity,
		UseGridVolumeForLiquid: useVolume,
		FixedPointMultiplier:   c.FixedMultiplier(),
		Iterations:             uint32(c.Iterations),
		FixedPointExponent:     uint32(c.FixedPointExponent),
	}
}

// constants rebuilds the solver constants a kernel sees.
func (p *params) constants() solver.Constants {
	return solver.Constants{
		Iterations:             int(p.Iterations),
		LiquidViscosity:        p.LiquidViscosity,
		LiquidRelaxation:       p.LiquidRelaxation,
		ElasticityRatio:        p.ElasticityRatio,
		ElasticRelaxation:      p.ElasticRelaxation,
		GridWidth:              int(p.GridWidth),
		GridHeight:             int(p.GridHeight),
		UseGridVolumeForLiquid: p.UseGridVolumeForLiquid != 0,
		FrictionAngle:          p.FrictionAngle,
		Plasticity:             p.Plasticity,
		GravityStrength:        p.GravityStrength,
		FixedPointExponent:     int(p.FixedPointExponent),
	}
}

func (p *params) vertices() int {
	return int(p.GridWidth) * int(p.GridHeight)
}

func (p *params) appendTo(dst []byte) []byte {
	w := writer{buf: dst}
	w.u32(p.GridWidth)
	w.u32(p.GridHeight)
	w.u32(p.ParticleCount)
	w.u32(p.ShapeCount)
	w.f32(p.DeltaTime)
	w.f32(p.GravityStrength)
	w.f32(p.LiquidViscosity)
	w.f32(p.LiquidRelaxation)
	w.f32(p.ElasticityRatio)
	w.f32(p.ElasticRelaxation)
	w.f32(p.FrictionAngle)
	w.f32(p.Plasticity)
	w.u32(p.UseGridVolumeForLiquid)
	w.f32(p.FixedPointMultiplier)
	w.u32(p.Iterations)
	w.u32(p.FixedPointExponent)
	return w.buf
}

func decodeParams(src []byte) params {
	r := reader{buf: src}
	return params{
		GridWidth:              r.u32(),
		GridHeight:             r.u32(),
		ParticleCount:          r.u32(),
		ShapeCount:             r.u32(),
		DeltaTime:              r.f32(),
		GravityStrength:        r.f32(),
		LiquidViscosity:        r.f32(),
		LiquidRelaxation:       r.f32(),
		ElasticityRatio:        r.f32(),
		ElasticRelaxation:      r.f32(),
		FrictionAngle:          r.f32(),
		Plasticity:             r.f32(),
		UseGridVolumeForLiquid: r.u32(),
		FixedPointMultiplier:   r.f32(),
		Iterations:             r.u32(),
		FixedPointExponent:     r.u32(),
	}
}

// appendParticles appends the device records of ps to dst.
func appendParticles(dst []byte, ps []solver.Particle) []byte {
	w := writer{buf: dst}
	for i := range ps {
		p := &ps[i]
		w.vec(p.Position)
		w.vec(p.Displacement)
		w.u32(uint32(p.Material))
		w.mat(p.DeformationDisplacement)
		w.mat(p.DeformationGradient)
		w.f32(p.LiquidDensity)
		w.f32(p.LogJp)
		w.f32(p.Mass)
		w.f32(p.Volume)
	}
	return w.buf
}

// decodeParticles overwrites ps with the records in src. src must hold
// len(ps) records.
func decodeParticles(src []byte, ps []solver.Particle) {
	r := reader{buf: src}
	for i := range ps {
		p := &ps[i]
		p.Position = r.vec()
		p.Displacement = r.vec()
		p.Material = solver.Material(r.u32())
		p.DeformationDisplacement = r.mat()
		p.DeformationGradient = r.mat()
		p.LiquidDensity = r.f32()
		p.LogJp = r.f32()
		p.Mass = r.f32()
		p.Volume = r.f32()
	}
}

// appendShapes appends slots shape records to dst. Slots past len(shapes)
// hold the off-domain placeholder.
func appendShapes(dst []byte, shapes []solver.Shape, slots int) []byte {
	w := writer{buf: dst}
	for i := range max(slots, len(shapes)) {
		s := solver.OffDomainShape()
		if i < len(shapes) {
			s = shapes[i]
		}
		w.u32(uint32(s.Kind))
		w.vec(s.Position)
		w.f32(s.Radius)
		w.f32(s.Rotation)
		w.vec(s.HalfSize)
	}
	return w.buf
}

func decodeShapes(src []byte, shapes []solver.Shape) {
	r := reader{buf: src}
	for i := range shapes {
		shapes[i] = solver.Shape{
			Kind:     geom.ShapeKind(r.u32()),
			Position: r.vec(),
			Radius:   r.f32(),
			Rotation: r.f32(),
			HalfSize: r.vec(),
		}
	}
}

type writer struct {
	buf []byte
}

func (w *writer) u32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) vec(v geom.Vec2) {
	w.f32(v.X)
	w.f32(v.Y)
}

func (w *writer) mat(m geom.Mat2) {
	w.f32(m.M00)
	w.f32(m.M01)
	w.f32(m.M10)
	w.f32(m.M11)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) vec() geom.Vec2 {
	return geom.Vec2{X: r.f32(), Y: r.f32()}
}

func (r *reader) mat() geom.Mat2 {
	return geom.Mat2{M00: r.f32(), M01: r.f32(), M10: r.f32(), M11: r.f32()}
}
