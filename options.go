package pbmpm

import (
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/pbmpm/internal/solver"
)

// Option configures a Simulation during creation.
//
// Example:
//
//	sim, err := pbmpm.New(c,
//	    pbmpm.WithBackend(pbmpm.BackendGPU),
//	    pbmpm.WithParticleCapacity(4096),
//	)
type Option func(*Config)

// Config is the resolved set of options handed to a backend Factory.
type Config struct {
	// Backend is the requested implementation.
	Backend Backend

	// ParticleCapacity bounds the particle collection.
	ParticleCapacity int

	// ShapeCapacity bounds the shape collection.
	ShapeCapacity int

	// Workers is the worker count of parallel backends; 0 selects
	// GOMAXPROCS.
	Workers int

	// DeviceProvider is an optional shared GPU device.
	DeviceProvider gpucontext.DeviceProvider
}

// defaultConfig returns the default options.
func defaultConfig() Config {
	return Config{
		Backend:          BackendCPU,
		ParticleCapacity: solver.DefaultParticleCapacity,
		ShapeCapacity:    solver.DefaultShapeCapacity,
	}
}

// NewConfig applies opts to the defaults.
func NewConfig(opts ...Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBackend selects the simulation backend.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithParticleCapacity sets the maximum number of particles.
// Non-positive values keep the default of 1000.
func WithParticleCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ParticleCapacity = n
		}
	}
}

// WithShapeCapacity sets the maximum number of shapes.
// Non-positive values keep the default of 10.
func WithShapeCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.ShapeCapacity = n
		}
	}
}

// WithWorkers sets the worker count of parallel backends.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithDeviceProvider shares an existing GPU device with the GPU backend
// instead of letting it open its own.
//
// The provider should also implement HalDevice() any and HalQueue() any
// returning wgpu/hal types; providers that do not are ignored.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(c *Config) {
		c.DeviceProvider = p
	}
}
