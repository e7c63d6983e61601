package gpu

import (
	"sync"

	"github.com/gogpu/pbmpm"
	"github.com/gogpu/pbmpm/internal/geom"
	"github.com/gogpu/pbmpm/internal/solver"
)

// Simulation runs each stage of a step as a compute kernel over
// device-resident buffers. Host storage is only synchronised with the
// device at EndStep (uploads) and BeginStep (readback).
type Simulation struct {
	constants pbmpm.Constants
	width     int
	height    int

	store *solver.Collections
	dev   device

	// uploaded is the number of particles resident on the device.
	uploaded    int
	shapesDirty bool

	// scheduled is set between a successful submit and the next BeginStep;
	// inFlight is the particle count of that step.
	scheduled bool
	inFlight  int

	// maxMass is the heaviest particle added; rangeLogged is set once the
	// fixed-point range diagnostic has been logged.
	maxMass     float32
	rangeLogged bool

	scratch  []byte
	readback []byte
	closed   bool
}

var _ pbmpm.Simulation = (*Simulation)(nil)

// kernelsValid compiles the kernel module once per process.
var kernelsValid = sync.OnceValue(func() error {
	_, err := CompileKernels()
	return err
})

// New creates a GPU simulation directly, bypassing the backend registry.
// Without a usable GPU the kernels run on the in-process emulator.
func New(c pbmpm.Constants, opts ...pbmpm.Option) (*Simulation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg := pbmpm.NewConfig(opts...)
	return newSimulation(c, cfg, openDevice(cfg, sizesFor(c, cfg))), nil
}

// NewEmulated creates a GPU simulation whose kernels always run on the
// in-process emulator.
func NewEmulated(c pbmpm.Constants, opts ...pbmpm.Option) (*Simulation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg := pbmpm.NewConfig(opts...)
	return newSimulation(c, cfg, newEmulator(cfg.Workers, sizesFor(c, cfg))), nil
}

func factory(c pbmpm.Constants, cfg pbmpm.Config) (pbmpm.Simulation, error) {
	return newSimulation(c, cfg, openDevice(cfg, sizesFor(c, cfg))), nil
}

func newSimulation(c pbmpm.Constants, cfg pbmpm.Config, dev device) *Simulation {
	if err := kernelsValid(); err != nil {
		pbmpm.Logger().Warn("gpu: kernel module did not pass naga validation", "err", err)
	}
	store := solver.NewCollections(cfg.ParticleCapacity, cfg.ShapeCapacity)
	return &Simulation{
		constants:   c,
		width:       c.GridWidth,
		height:      c.GridHeight,
		store:       store,
		dev:         dev,
		shapesDirty: true,
		readback:    make([]byte, store.ParticleCapacity()*ParticleSize),
	}
}

// Device returns a description of the device the kernels run on.
func (s *Simulation) Device() string {
	return s.dev.name()
}

// Configure implements pbmpm.Simulation. Invalid constants are logged
// and the previous ones kept.
func (s *Simulation) Configure(c pbmpm.Constants) {
	if c.GridWidth != s.width || c.GridHeight != s.height {
		pbmpm.Logger().Debug("gpu: grid size is fixed at construction, change ignored",
			"requestedWidth", c.GridWidth, "requestedHeight", c.GridHeight,
			"width", s.width, "height", s.height)
		c.GridWidth = s.width
		c.GridHeight = s.height
	}
	if err := c.Validate(); err != nil {
		pbmpm.Logger().Warn("gpu: constants rejected", "err", err)
		return
	}
	s.constants = c
}

// BeginStep implements pbmpm.Simulation. It waits for the device and
// copies the particle buffer back into host storage.
func (s *Simulation) BeginStep() {
	if !s.scheduled {
		return
	}
	s.scheduled = false

	if err := s.dev.wait(); err != nil {
		pbmpm.Logger().Error("gpu: step failed", "device", s.dev.name(), "err", err)
		return
	}
	buf := s.readback[:s.inFlight*ParticleSize]
	if err := s.dev.readParticles(buf); err != nil {
		pbmpm.Logger().Error("gpu: readback failed", "device", s.dev.name(), "err", err)
		return
	}
	decodeParticles(buf, s.store.Particles()[:s.inFlight])
}

// EndStep implements pbmpm.Simulation. A step still in flight is drained
// first.
func (s *Simulation) EndStep(dt float32) {
	if s.closed {
		return
	}
	s.BeginStep()
	if err := s.enqueue(dt); err != nil {
		pbmpm.Logger().Error("gpu: step not scheduled", "device", s.dev.name(), "err", err)
	}
}

// enqueue uploads what changed since the last step and submits the
// dispatches of one step.
func (s *Simulation) enqueue(dt float32) error {
	n := s.store.ParticleCount()
	s.checkFixedRange(n)
	if s.uploaded < n {
		s.scratch = appendParticles(s.scratch[:0], s.store.Particles()[s.uploaded:n])
		if err := s.dev.writeParticles(uint64(s.uploaded)*ParticleSize, s.scratch); err != nil { //nolint:gosec // non-negative
			return err
		}
		s.uploaded = n
	}

	if s.shapesDirty {
		s.scratch = appendShapes(s.scratch[:0], s.store.Shapes(), s.store.ShapeCapacity())
		if err := s.dev.writeShapes(s.scratch); err != nil {
			return err
		}
		s.shapesDirty = false
	}

	p := newParams(&s.constants, n, s.store.ShapeCount(), dt)
	s.scratch = p.appendTo(s.scratch[:0])
	if err := s.dev.writeParams(s.scratch); err != nil {
		return err
	}

	if err := s.dev.submit(schedule(s.constants.Iterations, n, s.width*s.height), n); err != nil {
		return err
	}
	s.scheduled = true
	s.inFlight = n
	return nil
}

// checkFixedRange logs once when n particles of the heaviest mass could
// overflow a fixed-point grid channel if they met on one vertex.
func (s *Simulation) checkFixedRange(n int) {
	exp := s.constants.FixedPointExponent
	if !fixedRangeExceeded(n, s.maxMass, exp) {
		s.rangeLogged = false
		return
	}
	if s.rangeLogged {
		return
	}
	s.rangeLogged = true
	pbmpm.Logger().Debug("gpu: grid mass may exceed the fixed-point range",
		"particles", n, "maxMass", s.maxMass,
		"exponent", exp, "limit", geom.MaxFixedMagnitude(exp))
}

// fixedRangeExceeded reports whether the worst-case mass accumulated on a
// single vertex, n times maxMass, is beyond MaxFixedMagnitude(exp).
func fixedRangeExceeded(n int, maxMass float32, exp int) bool {
	return float64(n)*float64(maxMass) > geom.MaxFixedMagnitude(exp)
}

// AddParticle implements pbmpm.Simulation.
func (s *Simulation) AddParticle(p pbmpm.Particle) error {
	err := s.store.AddParticle(p)
	if err != nil {
		pbmpm.Logger().Warn("pbmpm: particle dropped", "capacity", s.store.ParticleCapacity(), "err", err)
		return err
	}
	s.maxMass = max(s.maxMass, p.Mass)
	return nil
}

// AddShape implements pbmpm.Simulation.
func (s *Simulation) AddShape(sh pbmpm.Shape) (int, error) {
	i, err := s.store.AddShape(sh)
	if err == nil {
		s.shapesDirty = true
	}
	return i, err
}

// UpdateShape implements pbmpm.Simulation.
func (s *Simulation) UpdateShape(index int, sh pbmpm.Shape) error {
	err := s.store.UpdateShape(index, sh)
	if err == nil {
		s.shapesDirty = true
	}
	return err
}

// Particles implements pbmpm.Simulation.
func (s *Simulation) Particles() []pbmpm.Particle {
	return s.store.Particles()
}

// ParticleCount implements pbmpm.Simulation.
func (s *Simulation) ParticleCount() int {
	return s.store.ParticleCount()
}

// Backend implements pbmpm.Simulation.
func (s *Simulation) Backend() pbmpm.Backend {
	return pbmpm.BackendGPU
}

// Close implements pbmpm.Simulation. It is safe to call multiple times.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}
	s.BeginStep()
	s.dev.destroy()
	s.closed = true
	return nil
}
