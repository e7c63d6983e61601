package pbmpm

import (
	"github.com/gogpu/pbmpm/internal/parallel"
	"github.com/gogpu/pbmpm/internal/solver"
)

// CPUSimulation runs every step as a single sequential task on one
// background worker. No scatter race exists because only that worker
// touches the grid.
type CPUSimulation struct {
	constants Constants
	width     int
	height    int

	store *solver.Collections
	grid  *solver.FloatGrid
	pool  *parallel.WorkerPool

	// pending is closed when the scheduled step has finished; nil when idle.
	pending <-chan struct{}
	closed  bool
}

// NewCPUSimulation creates a CPU simulation directly, bypassing the backend
// registry.
func NewCPUSimulation(c Constants, opts ...Option) (*CPUSimulation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return newCPUSimulation(c, NewConfig(opts...)), nil
}

func newCPUSimulation(c Constants, cfg Config) *CPUSimulation {
	return &CPUSimulation{
		constants: c,
		width:     c.GridWidth,
		height:    c.GridHeight,
		store:     solver.NewCollections(cfg.ParticleCapacity, cfg.ShapeCapacity),
		grid:      solver.NewFloatGrid(c.GridWidth, c.GridHeight),
		pool:      parallel.NewWorkerPool(1),
	}
}

// Configure implements Simulation.
// Invalid constants are logged and the previous ones kept.
func (s *CPUSimulation) Configure(c Constants) {
	c = fixGridSize(c, s.width, s.height)
	if err := c.Validate(); err != nil {
		Logger().Warn("pbmpm: constants rejected", "backend", BackendCPU, "err", err)
		return
	}
	s.constants = c
}

// fixGridSize keeps the construction-time grid dimensions in c.
func fixGridSize(c Constants, width, height int) Constants {
	if c.GridWidth != width || c.GridHeight != height {
		Logger().Debug("pbmpm: grid size is fixed at construction, change ignored",
			"requestedWidth", c.GridWidth, "requestedHeight", c.GridHeight,
			"width", width, "height", height)
		c.GridWidth = width
		c.GridHeight = height
	}
	return c
}

// BeginStep implements Simulation.
func (s *CPUSimulation) BeginStep() {
	if s.pending != nil {
		<-s.pending
		s.pending = nil
	}
}

// EndStep implements Simulation. A step still in flight is drained first.
func (s *CPUSimulation) EndStep(dt float32) {
	if s.closed {
		return
	}
	s.BeginStep()

	c := s.constants
	particles := s.store.Particles()
	shapes := s.store.Shapes()
	grid := s.grid

	s.pending = s.pool.Go(func() {
		solver.Step(particles, grid, shapes, &c, dt)
	})
}

// AddParticle implements Simulation.
func (s *CPUSimulation) AddParticle(p Particle) error {
	return addParticle(s.store, p)
}

// addParticle appends p and logs an overflow.
func addParticle(store *solver.Collections, p Particle) error {
	err := store.AddParticle(p)
	if err != nil {
		Logger().Warn("pbmpm: particle dropped", "capacity", store.ParticleCapacity(), "err", err)
	}
	return err
}

// AddShape implements Simulation.
func (s *CPUSimulation) AddShape(sh Shape) (int, error) {
	return s.store.AddShape(sh)
}

// UpdateShape implements Simulation.
func (s *CPUSimulation) UpdateShape(index int, sh Shape) error {
	return s.store.UpdateShape(index, sh)
}

// Particles implements Simulation.
func (s *CPUSimulation) Particles() []Particle {
	return s.store.Particles()
}

// ParticleCount implements Simulation.
func (s *CPUSimulation) ParticleCount() int {
	return s.store.ParticleCount()
}

// Backend implements Simulation.
func (s *CPUSimulation) Backend() Backend {
	return BackendCPU
}

// Close implements Simulation. It is safe to call multiple times.
func (s *CPUSimulation) Close() error {
	if s.closed {
		return nil
	}
	s.BeginStep()
	s.pool.Close()
	s.closed = true
	return nil
}
