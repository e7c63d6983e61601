package pbmpm

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrBackendUnavailable is returned by NewBackend when the requested backend
// is not registered.
var ErrBackendUnavailable = errors.New("pbmpm: backend not available")

// Backend identifies a Simulation implementation.
type Backend int

const (
	// BackendCPU runs each step as one sequential task on a background
	// worker. It is always available.
	BackendCPU Backend = iota

	// BackendGPU runs each stage as a compute kernel. It is registered by
	// importing github.com/gogpu/pbmpm/gpu.
	BackendGPU
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendCPU:
		return "cpu"
	case BackendGPU:
		return "gpu"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend returns the backend with the given name.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "cpu":
		return BackendCPU, nil
	case "gpu":
		return BackendGPU, nil
	}
	return 0, fmt.Errorf("pbmpm: unknown backend %q", s)
}

// Simulation advances a particle population through physics steps.
//
// A host alternates BeginStep and EndStep. Particles, ParticleCount and the
// mutators may only be used between the two calls; BeginStep is the only
// call that blocks. Implementations are not safe for concurrent use.
type Simulation interface {
	// Configure replaces the constants used from the next EndStep on.
	// Grid dimensions keep the values given at construction.
	Configure(c Constants)

	// BeginStep waits for the step scheduled by the last EndStep, if any,
	// and makes its results visible through Particles.
	BeginStep()

	// EndStep schedules one physics step of dt seconds and returns.
	EndStep(dt float32)

	// AddParticle appends p. At capacity it logs a warning and returns
	// ErrParticleCapacity; the collection is unchanged.
	AddParticle(p Particle) error

	// AddShape appends s and returns its slot, or ErrShapeCapacity.
	AddShape(s Shape) (int, error)

	// UpdateShape overwrites the shape in slot index, or returns
	// ErrShapeIndex if the slot was never handed out.
	UpdateShape(index int, s Shape) error

	// Particles returns a view of the particle state as of the last
	// BeginStep. The view is valid until the next EndStep and must not be
	// retained or modified.
	Particles() []Particle

	// ParticleCount returns the number of particles.
	ParticleCount() int

	// Backend identifies the implementation.
	Backend() Backend

	// Close waits for outstanding work and releases all resources.
	Close() error
}

// Factory creates a Simulation for validated constants.
type Factory func(c Constants, cfg Config) (Simulation, error)

var (
	registryMu sync.RWMutex
	registry   = map[Backend]Factory{
		BackendCPU: func(c Constants, cfg Config) (Simulation, error) {
			return newCPUSimulation(c, cfg), nil
		},
	}
)

// RegisterBackend makes a backend available to New and NewBackend.
// Registering a backend again replaces its factory. The CPU backend cannot
// be replaced.
//
// Typical usage from a backend package:
//
//	func init() {
//	    pbmpm.RegisterBackend(pbmpm.BackendGPU, newSimulation)
//	}
func RegisterBackend(b Backend, f Factory) error {
	if f == nil {
		return errors.New("pbmpm: backend factory must not be nil")
	}
	if b == BackendCPU {
		return errors.New("pbmpm: the cpu backend cannot be replaced")
	}
	registryMu.Lock()
	registry[b] = f
	registryMu.Unlock()
	return nil
}

// Backends returns the registered backends in ascending order.
func Backends() []Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Backend, 0, len(registry))
	for b := range registry {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// NewBackend creates a simulation on exactly the requested backend.
func NewBackend(c Constants, opts ...Option) (Simulation, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	cfg := NewConfig(opts...)

	registryMu.RLock()
	factory, ok := registry[cfg.Backend]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, cfg.Backend)
	}

	sim, err := factory(c, cfg)
	if err != nil {
		return nil, fmt.Errorf("pbmpm: create %s backend: %w", cfg.Backend, err)
	}
	Logger().Info("pbmpm: simulation created",
		"backend", sim.Backend(),
		"grid", fmt.Sprintf("%dx%d", c.GridWidth, c.GridHeight),
		"particleCapacity", cfg.ParticleCapacity)
	return sim, nil
}

// New creates a simulation on the requested backend (CPU by default).
// If that backend is not registered or fails to initialize, New logs a
// warning and falls back to the CPU backend.
func New(c Constants, opts ...Option) (Simulation, error) {
	sim, err := NewBackend(c, opts...)
	if err == nil {
		return sim, nil
	}
	if errors.Is(err, ErrInvalidConstants) {
		return nil, err
	}

	cfg := NewConfig(opts...)
	if cfg.Backend == BackendCPU {
		return nil, err
	}
	Logger().Warn("pbmpm: falling back to CPU backend", "requested", cfg.Backend, "err", err)

	return NewBackend(c, append(opts, WithBackend(BackendCPU))...)
}
