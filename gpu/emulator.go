package gpu

import (
	"fmt"

	"github.com/gogpu/pbmpm/internal/parallel"
	"github.com/gogpu/pbmpm/internal/solver"
)

// emulator executes the kernels in-process with the same memory model as
// the hardware device: device-resident buffers separate from the host, a
// fixed-point grid accumulated with atomic adds, one task per work-group
// and a full barrier between dispatches.
type emulator struct {
	queue   *parallel.WorkerPool
	compute *parallel.WorkerPool

	particles []solver.Particle
	shapes    []solver.Shape
	grid      *solver.FixedGrid
	params    params

	pending <-chan struct{}
}

func newEmulator(workers int, sz sizes) *emulator {
	return &emulator{
		queue:     parallel.NewWorkerPool(1),
		compute:   parallel.NewWorkerPool(workers),
		particles: make([]solver.Particle, sz.particles),
		shapes:    make([]solver.Shape, sz.shapes),
		grid:      solver.NewFixedGrid(sz.width, sz.height, 0),
	}
}

func (e *emulator) name() string {
	return fmt.Sprintf("emulator (%d workers)", e.compute.Workers())
}

func (e *emulator) writeParams(data []byte) error {
	if len(data) != ParamsSize {
		return fmt.Errorf("gpu: params block is %d bytes, want %d", len(data), ParamsSize)
	}
	e.params = decodeParams(data)
	return nil
}

func (e *emulator) writeParticles(offset uint64, data []byte) error {
	first := int(offset / ParticleSize) //nolint:gosec // offset < buffer size
	n := len(data) / ParticleSize
	if offset%ParticleSize != 0 || len(data)%ParticleSize != 0 || first+n > len(e.particles) {
		return fmt.Errorf("gpu: particle write [%d, +%d) out of range", offset, len(data))
	}
	decodeParticles(data, e.particles[first:first+n])
	return nil
}

func (e *emulator) writeShapes(data []byte) error {
	n := len(data) / ShapeSize
	if len(data)%ShapeSize != 0 || n > len(e.shapes) {
		return fmt.Errorf("gpu: shape write of %d bytes out of range", len(data))
	}
	decodeShapes(data, e.shapes[:n])
	return nil
}

func (e *emulator) submit(passes []pass, _ int) error {
	if e.pending != nil {
		return fmt.Errorf("gpu: submit while a step is in flight")
	}

	p := e.params
	c := p.constants()
	shapes := e.shapes[:min(int(p.ShapeCount), len(e.shapes))]
	particles := e.particles[:min(int(p.ParticleCount), len(e.particles))]
	e.grid.SetExponent(c.FixedPointExponent)

	k := kernels{
		c:         &c,
		dt:        p.DeltaTime,
		particles: particles,
		shapes:    shapes,
		grid:      e.grid,
	}

	e.pending = e.queue.Go(func() {
		for _, ps := range passes {
			e.compute.Dispatch(int(ps.groups), func(group int) {
				k.runGroup(ps.kernel, group)
			})
		}
	})
	return nil
}

func (e *emulator) wait() error {
	if e.pending != nil {
		<-e.pending
		e.pending = nil
	}
	return nil
}

func (e *emulator) readParticles(dst []byte) error {
	n := len(dst) / ParticleSize
	if len(dst)%ParticleSize != 0 || n > len(e.particles) {
		return fmt.Errorf("gpu: particle read of %d bytes out of range", len(dst))
	}
	appendParticles(dst[:0], e.particles[:n])
	return nil
}

func (e *emulator) destroy() {
	_ = e.wait()
	e.queue.Close()
	e.compute.Close()
}

// kernels holds the bindings of one step.
type kernels struct {
	c         *solver.Constants
	dt        float32
	particles []solver.Particle
	shapes    []solver.Shape
	grid      *solver.FixedGrid
}

// runGroup executes the invocations of one work-group. Invocations past
// the end of the bound data return immediately.
func (k *kernels) runGroup(kernel Kernel, group int) {
	width, height := k.grid.Dims()
	vertices := width * height

	for lane := range WorkgroupSize {
		id := group*WorkgroupSize + lane

		if kernel.overGrid() {
			if id >= vertices {
				return
			}
			if kernel == KernelGridZero {
				k.grid.ClearVertex(id)
			} else {
				solver.SolveVertex(id%width, id/width, k.grid, k.shapes, k.c)
			}
			continue
		}

		if id >= len(k.particles) {
			return
		}
		p := &k.particles[id]
		switch kernel {
		case KernelParticleUpdate:
			solver.Relax(p, k.c)
		case KernelParticleToGrid:
			solver.Scatter(p, k.grid, k.c)
		case KernelGridToParticle:
			solver.Gather(p, k.grid, k.c)
		case KernelParticleIntegrate:
			solver.Integrate(p, k.shapes, k.c, k.dt)
		}
	}
}
