package gpu

import "fmt"

// WorkgroupSize is the number of invocations per work-group of every kernel.
const WorkgroupSize = 64

// Kernel identifies one compute stage of the pipeline.
type Kernel int

// Kernels in pipeline order.
const (
	KernelParticleUpdate Kernel = iota
	KernelGridZero
	KernelParticleToGrid
	KernelGridUpdate
	KernelGridToParticle
	KernelParticleIntegrate

	kernelCount
)

// String returns the kernel's entry point name in the WGSL module.
func (k Kernel) String() string {
	switch k {
	case KernelParticleUpdate:
		return "particle_update"
	case KernelGridZero:
		return "grid_zero"
	case KernelParticleToGrid:
		return "particle_to_grid"
	case KernelGridUpdate:
		return "grid_update"
	case KernelGridToParticle:
		return "grid_to_particle"
	case KernelParticleIntegrate:
		return "particle_integrate"
	default:
		return fmt.Sprintf("Kernel(%d)", int(k))
	}
}

// Kernels returns all kernels in pipeline order.
func Kernels() []Kernel {
	return []Kernel{
		KernelParticleUpdate,
		KernelGridZero,
		KernelParticleToGrid,
		KernelGridUpdate,
		KernelGridToParticle,
		KernelParticleIntegrate,
	}
}

// overGrid reports whether the kernel runs one invocation per vertex.
func (k Kernel) overGrid() bool {
	return k == KernelGridZero || k == KernelGridUpdate
}

// Groups returns the number of work-groups needed to cover n invocations.
func Groups(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + WorkgroupSize - 1) / WorkgroupSize) //nolint:gosec // n > 0
}

// pass is one dispatch of a kernel.
type pass struct {
	kernel Kernel
	groups uint32
}

// schedule returns the dispatches of one step: iterations times the four
// relaxation stages around the grid clear, then the integration.
func schedule(iterations, particles, vertices int) []pass {
	passes := make([]pass, 0, iterations*5+1)
	add := func(k Kernel) {
		n := particles
		if k.overGrid() {
			n = vertices
		}
		passes = append(passes, pass{kernel: k, groups: Groups(n)})
	}
	for range iterations {
		add(KernelParticleUpdate)
		add(KernelGridZero)
		add(KernelParticleToGrid)
		add(KernelGridUpdate)
		add(KernelGridToParticle)
	}
	add(KernelParticleIntegrate)
	return passes
}
