// Package pbmpm provides a 2D position-based Material Point Method solver.
//
// # Overview
//
// Particles carry mass, position and a local deformation state. Every
// physics step they are transferred to a transient grid and back several
// times; each cycle relaxes their deformation toward a material-specific
// target (liquid, elastic, viscous or sand), resolves collisions with
// static analytic shapes, and keeps everything inside a guardian region
// at the grid boundary.
//
// # Quick Start
//
//	import "github.com/gogpu/pbmpm"
//
//	c := pbmpm.DefaultConstants()
//	sim, err := pbmpm.New(c)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sim.Close()
//
//	engine := pbmpm.NewEngine(sim)
//	engine.OnStart(func(e *pbmpm.Engine) {
//	    e.SpawnParticle(pbmpm.V2(32, 40), pbmpm.Liquid, 1)
//	    e.SpawnShape(pbmpm.NewCircle(pbmpm.V2(32, 20), 6))
//	})
//	for range 600 {
//	    engine.Step(1.0 / 60)
//	}
//
// # Backends
//
// The CPU backend is always available and runs a whole step as one
// sequential task on a background worker. The GPU backend runs the same
// pipeline as six compute kernels with a fixed-point atomic grid; enable
// it with a blank import:
//
//	import _ "github.com/gogpu/pbmpm/gpu"
//
//	sim, err := pbmpm.New(c, pbmpm.WithBackend(pbmpm.BackendGPU))
//
// # Stepping
//
// A host drives a Simulation with BeginStep and EndStep. BeginStep blocks
// until the previous step is done; particles may be read and particles or
// shapes added between the two calls. EndStep schedules the next step and
// returns immediately.
//
// # Coordinate System
//
// Positions are in grid cells. The origin is the lower-left grid vertex and
// gravity pulls toward negative Y.
package pbmpm
