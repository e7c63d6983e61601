//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/pbmpm"
)

// halDevice runs the kernels on a GPU through wgpu/hal.
type halDevice struct {
	label    string
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance

	// shared is set when device and queue belong to a DeviceProvider.
	shared bool

	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  [kernelCount]hal.ComputePipeline
	bindGroup  hal.BindGroup

	params    hal.Buffer
	particles hal.Buffer
	grid      hal.Buffer
	shapes    hal.Buffer
	staging   hal.Buffer

	sz sizes

	// inFlight is the command buffer of the last submit, freed by wait.
	inFlight hal.CommandBuffer
}

// openHardware opens the provider's device when it exposes HAL handles,
// otherwise the first Vulkan adapter.
func openHardware(cfg pbmpm.Config, sz sizes) (device, error) {
	d := &halDevice{sz: sz}

	if cfg.DeviceProvider != nil {
		if err := d.useProvider(cfg.DeviceProvider); err != nil {
			pbmpm.Logger().Warn("gpu: device provider ignored", "err", err)
		}
	}
	if d.device == nil {
		if err := d.open(); err != nil {
			d.destroy()
			return nil, err
		}
	}

	if err := d.createResources(); err != nil {
		d.destroy()
		return nil, err
	}
	pbmpm.Logger().Info("gpu: compute device ready", "device", d.label, "shared", d.shared)
	return d, nil
}

func (d *halDevice) useProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return errors.New("gpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return errors.New("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return errors.New("gpu: provider HalQueue is not hal.Queue")
	}
	d.device = device
	d.queue = queue
	d.shared = true
	d.label = "shared device"
	return nil
}

func (d *halDevice) open() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("%w: vulkan backend not registered", ErrNoDevice)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("%w: create instance: %w", ErrNoDevice, err)
	}
	d.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("%w: no adapters", ErrNoDevice)
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrNoDevice, selected.Info.Name, err)
	}
	d.device = open.Device
	d.queue = open.Queue
	d.label = selected.Info.Name
	return nil
}

func (d *halDevice) createResources() error {
	if err := d.createBuffers(); err != nil {
		return err
	}
	if err := d.createPipelines(); err != nil {
		return err
	}
	return d.createBindGroup()
}

func (d *halDevice) particleBytes() uint64 { return uint64(max(d.sz.particles, 1)) * ParticleSize } //nolint:gosec // capacity > 0
func (d *halDevice) shapeBytes() uint64    { return uint64(max(d.sz.shapes, 1)) * ShapeSize }       //nolint:gosec // capacity > 0
func (d *halDevice) gridBytes() uint64     { return uint64(d.sz.vertices()) * 4 * 4 }               //nolint:gosec // validated grid

func (d *halDevice) createBuffers() error {
	buffers := []struct {
		dst   *hal.Buffer
		label string
		size  uint64
		usage gputypes.BufferUsage
	}{
		{&d.params, "pbmpm_params", ParamsSize, gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst},
		{&d.particles, "pbmpm_particles", d.particleBytes(),
			gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc},
		{&d.grid, "pbmpm_grid", d.gridBytes(), gputypes.BufferUsageStorage},
		{&d.shapes, "pbmpm_shapes", d.shapeBytes(), gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst},
		{&d.staging, "pbmpm_staging", d.particleBytes(), gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst},
	}
	for _, b := range buffers {
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{Label: b.label, Size: b.size, Usage: b.usage})
		if err != nil {
			return fmt.Errorf("gpu: create %s buffer: %w", b.label, err)
		}
		*b.dst = buf
	}
	return nil
}

func (d *halDevice) createPipelines() error {
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "pbmpm",
		Source: hal.ShaderSource{WGSL: shaderSource},
	})
	if err != nil {
		return fmt.Errorf("gpu: compile kernels: %w", err)
	}
	d.module = module

	bufferEntry := func(binding uint32, t gputypes.BufferBindingType) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}
	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "pbmpm_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			bufferEntry(0, gputypes.BufferBindingTypeUniform),
			bufferEntry(1, gputypes.BufferBindingTypeStorage),
			bufferEntry(2, gputypes.BufferBindingTypeStorage),
			bufferEntry(3, gputypes.BufferBindingTypeReadOnlyStorage),
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group layout: %w", err)
	}
	d.bindLayout = layout

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "pbmpm_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("gpu: create pipeline layout: %w", err)
	}
	d.pipeLayout = pipeLayout

	for _, k := range Kernels() {
		pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label:   k.String(),
			Layout:  d.pipeLayout,
			Compute: hal.ComputeState{Module: d.module, EntryPoint: k.String()},
		})
		if err != nil {
			return fmt.Errorf("gpu: create %s pipeline: %w", k, err)
		}
		d.pipelines[k] = pipeline
	}
	return nil
}

func (d *halDevice) createBindGroup() error {
	binding := func(index uint32, buf hal.Buffer, size uint64) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding:  index,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
		}
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "pbmpm_bind",
		Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			binding(0, d.params, ParamsSize),
			binding(1, d.particles, d.particleBytes()),
			binding(2, d.grid, d.gridBytes()),
			binding(3, d.shapes, d.shapeBytes()),
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create bind group: %w", err)
	}
	d.bindGroup = bg
	return nil
}

func (d *halDevice) name() string { return d.label }

func (d *halDevice) writeParams(data []byte) error {
	return d.queue.WriteBuffer(d.params, 0, data)
}

func (d *halDevice) writeParticles(offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return d.queue.WriteBuffer(d.particles, offset, data)
}

func (d *halDevice) writeShapes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return d.queue.WriteBuffer(d.shapes, 0, data)
}

// submit records one compute pass per dispatch and a copy of the live
// particles into the staging buffer.
func (d *halDevice) submit(passes []pass, particles int) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "pbmpm_step"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("pbmpm_step"); err != nil {
		return fmt.Errorf("gpu: begin encoding: %w", err)
	}

	for _, p := range passes {
		if p.groups == 0 {
			continue
		}
		cp := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: p.kernel.String()})
		cp.SetPipeline(d.pipelines[p.kernel])
		cp.SetBindGroup(0, d.bindGroup, nil)
		cp.Dispatch(p.groups, 1, 1)
		cp.End()
	}

	if particles > 0 {
		encoder.CopyBufferToBuffer(d.particles, d.staging, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: uint64(particles) * ParticleSize}, //nolint:gosec // particles > 0
		})
	}

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("gpu: end encoding: %w", err)
	}
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("gpu: submit: %w", err)
	}
	d.inFlight = cmd
	pbmpm.Logger().Debug("gpu: step submitted", "dispatches", len(passes), "particles", particles)
	return nil
}

func (d *halDevice) wait() error {
	if d.inFlight == nil {
		return nil
	}
	err := d.device.WaitIdle()
	d.device.FreeCommandBuffer(d.inFlight)
	d.inFlight = nil
	if err != nil {
		return fmt.Errorf("gpu: wait for device: %w", err)
	}
	return nil
}

func (d *halDevice) readParticles(dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	mapping, err := d.device.MapBuffer(d.staging, 0, uint64(len(dst)))
	if err != nil {
		return fmt.Errorf("gpu: map staging buffer: %w", err)
	}
	copy(dst, unsafe.Slice((*byte)(mapping.Ptr), len(dst)))
	if err := d.device.UnmapBuffer(d.staging); err != nil {
		return fmt.Errorf("gpu: unmap staging buffer: %w", err)
	}
	return nil
}

func (d *halDevice) destroy() {
	if d.device == nil {
		if d.instance != nil {
			d.instance.Destroy()
		}
		return
	}
	_ = d.wait()

	if d.bindGroup != nil {
		d.device.DestroyBindGroup(d.bindGroup)
	}
	for _, p := range d.pipelines {
		if p != nil {
			d.device.DestroyComputePipeline(p)
		}
	}
	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
	}
	if d.module != nil {
		d.device.DestroyShaderModule(d.module)
	}
	for _, b := range []hal.Buffer{d.params, d.particles, d.grid, d.shapes, d.staging} {
		if b != nil {
			d.device.DestroyBuffer(b)
		}
	}

	// Don't destroy shared resources, the provider owns them.
	if !d.shared {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.device = nil
	d.queue = nil
	d.instance = nil
}
