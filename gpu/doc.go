// Package gpu registers the compute-kernel backend of pbmpm.
//
// Import it for its side effect to make pbmpm.BackendGPU available:
//
//	import _ "github.com/gogpu/pbmpm/gpu"
//
//	sim, err := pbmpm.New(c, pbmpm.WithBackend(pbmpm.BackendGPU))
//
// Every stage of a step is a kernel from one WGSL module
// (shaders/pbmpm.wgsl). The grid is accumulated in fixed point with atomic
// int32 adds, scaled by 10^FixedPointExponent; choose the exponent so that
// the largest grid momentum stays below 2^31 / 10^FixedPointExponent.
//
// Kernels run on a GPU through wgpu/hal when a Vulkan adapter opens or a
// DeviceProvider exposing HAL handles is passed with
// pbmpm.WithDeviceProvider. Otherwise they run on an in-process emulator
// that keeps the same memory model: separate device buffers, one task per
// work-group and a barrier between dispatches. Build with -tags nogpu to
// always use the emulator.
package gpu
