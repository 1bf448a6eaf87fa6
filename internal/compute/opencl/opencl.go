//go:build opencl

// Package opencl exposes OpenCL devices through the compute interfaces.
// Programs are OpenCL C source. The binding targets OpenCL 1.2 entry points,
// so device pipes are not offered and NewPipe reports
// compute.ErrOptionalFeatureUnavailable.
package opencl

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"

	"multilife/internal/compute"
)

// Platform enumerates every OpenCL platform of the installed ICD loader.
type Platform struct{}

// NewPlatform returns the OpenCL platform.
func NewPlatform() *Platform { return &Platform{} }

func (p *Platform) Name() string               { return "opencl" }
func (p *Platform) Language() compute.Language { return compute.LanguageOpenCLC }

var deviceTypes = []struct {
	typ compute.DeviceType
	cl  cl.DeviceType
}{
	{compute.DeviceTypeGPU, cl.DeviceTypeGPU},
	{compute.DeviceTypeAccelerator, cl.DeviceTypeAccelerator},
	{compute.DeviceTypeCPU, cl.DeviceTypeCPU},
}

// Devices returns the OpenCL devices whose type intersects want. A missing
// ICD loader is reported as an empty result.
func (p *Platform) Devices(want compute.DeviceType) ([]compute.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		compute.Logger().Debug("opencl platforms unavailable", "err", err)
		return nil, nil
	}
	var out []compute.Device
	for _, clp := range platforms {
		for _, dt := range deviceTypes {
			if want&dt.typ == 0 {
				continue
			}
			devices, err := clp.GetDevices(dt.cl)
			if err != nil {
				if !errors.Is(err, cl.ErrDeviceNotFound) {
					compute.Logger().Debug("opencl device query failed", "platform", clp.Name(), "err", err)
				}
				continue
			}
			for _, d := range devices {
				out = append(out, &Device{dev: d, typ: dt.typ, platform: p})
			}
		}
	}
	return out, nil
}

// Device is one OpenCL device.
type Device struct {
	dev      *cl.Device
	typ      compute.DeviceType
	platform *Platform
}

func (d *Device) Name() string               { return d.dev.Name() }
func (d *Device) Type() compute.DeviceType   { return d.typ }
func (d *Device) ComputeUnits() int          { return d.dev.MaxComputeUnits() }
func (d *Device) MaxWorkGroupSize() int      { return d.dev.MaxWorkGroupSize() }
func (d *Device) Platform() compute.Platform { return d.platform }

// NewContext creates an OpenCL context holding only d.
func (d *Device) NewContext() (compute.Context, error) {
	ctx, err := cl.CreateContext([]*cl.Device{d.dev})
	if err != nil {
		return nil, fmt.Errorf("%w: context on %s: %v", compute.ErrResourceCreation, d.Name(), err)
	}
	return &Context{ctx: ctx, device: d}, nil
}

// Context wraps a cl.Context.
type Context struct {
	ctx    *cl.Context
	device *Device
}

func (c *Context) Device() compute.Device { return c.device }

// NewQueue creates an in-order command queue.
func (c *Context) NewQueue(profiling bool) (compute.Queue, error) {
	var props cl.CommandQueueProperty
	if profiling {
		props = cl.CommandQueueProfilingEnable
	}
	q, err := c.ctx.CreateCommandQueue(c.device.dev, props)
	if err != nil {
		return nil, fmt.Errorf("%w: command queue: %v", compute.ErrResourceCreation, err)
	}
	return &Queue{q: q, profiling: profiling}, nil
}

// NewBuffer allocates size bytes of read-write device memory.
func (c *Context) NewBuffer(size int) (compute.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", compute.ErrBufferAllocation, size)
	}
	mem, err := c.ctx.CreateEmptyBuffer(cl.MemReadWrite, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %v", compute.ErrBufferAllocation, size, err)
	}
	return &Buffer{mem: mem, size: size}, nil
}

// NewPipe is not supported by the OpenCL 1.2 binding.
func (c *Context) NewPipe(packetSize, capacity int) (compute.Pipe, error) {
	return nil, fmt.Errorf("%w: pipes on %s", compute.ErrOptionalFeatureUnavailable, c.device.Name())
}

// BuildProgram compiles OpenCL C source for the context device.
func (c *Context) BuildProgram(src string) (compute.Program, error) {
	prog, err := c.ctx.CreateProgramWithSource([]string{src})
	if err != nil {
		return nil, fmt.Errorf("%w: program: %v", compute.ErrResourceCreation, err)
	}
	err = prog.BuildProgram([]*cl.Device{c.device.dev}, "-cl-std=CL2.0")
	if err != nil {
		// OpenCL 1.x compilers reject the 2.0 standard flag.
		compute.Logger().Debug("opencl 2.0 build failed, retrying default standard", "device", c.device.Name(), "err", err)
		err = prog.BuildProgram([]*cl.Device{c.device.dev}, "")
	}
	if err != nil {
		prog.Release()
		var buildErr cl.BuildError
		if errors.As(err, &buildErr) {
			return nil, &compute.BuildError{Log: string(buildErr)}
		}
		return nil, &compute.BuildError{Log: err.Error()}
	}
	return &Program{prog: prog}, nil
}

func (c *Context) Release() { c.ctx.Release() }

// Program wraps a built cl.Program.
type Program struct {
	prog *cl.Program
}

// Kernel creates the kernel object for the named __kernel function.
func (p *Program) Kernel(name string) (compute.Kernel, error) {
	k, err := p.prog.CreateKernel(name)
	if err != nil {
		return nil, fmt.Errorf("%w: kernel %q: %v", compute.ErrResourceCreation, name, err)
	}
	n, err := k.NumArgs()
	if err != nil {
		k.Release()
		return nil, fmt.Errorf("%w: kernel %q args: %v", compute.ErrResourceCreation, name, err)
	}
	return &Kernel{k: k, name: name, numArgs: n}, nil
}

func (p *Program) Release() { p.prog.Release() }

// Kernel wraps a cl.Kernel.
type Kernel struct {
	k       *cl.Kernel
	name    string
	numArgs int
}

func (k *Kernel) Name() string { return k.name }
func (k *Kernel) NumArgs() int { return k.numArgs }
func (k *Kernel) Release()     { k.k.Release() }

// SetArg binds a *Buffer or a 32-bit scalar. Unsigned scalars are passed
// bit for bit.
func (k *Kernel) SetArg(index int, value any) error {
	if index < 0 || index >= k.numArgs {
		return fmt.Errorf("%w: %s: argument %d out of range [0,%d)", compute.ErrDispatch, k.name, index, k.numArgs)
	}
	var err error
	switch v := value.(type) {
	case *Buffer:
		err = k.k.SetArgBuffer(index, v.mem)
	case uint32:
		err = k.k.SetArgInt32(index, int32(v))
	case int32:
		err = k.k.SetArgInt32(index, v)
	case int:
		err = k.k.SetArgInt32(index, int32(v))
	default:
		return fmt.Errorf("%w: %s: argument %d: unsupported type %T", compute.ErrDispatch, k.name, index, value)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: argument %d: %v", compute.ErrDispatch, k.name, index, err)
	}
	return nil
}

// Buffer wraps a cl.MemObject of a known size.
type Buffer struct {
	mem  *cl.MemObject
	size int
}

func (b *Buffer) Size() int { return b.size }
func (b *Buffer) Release()  { b.mem.Release() }

// Queue wraps an in-order cl.CommandQueue.
type Queue struct {
	q         *cl.CommandQueue
	profiling bool
}

// Write copies src into buf at offset and waits for the transfer.
func (q *Queue) Write(buf compute.Buffer, offset int, src []byte) error {
	b, err := transfer(buf, offset, len(src))
	if err != nil || len(src) == 0 {
		return err
	}
	if _, err := q.q.EnqueueWriteBuffer(b.mem, true, offset, len(src), unsafe.Pointer(&src[0]), nil); err != nil {
		return fmt.Errorf("%w: write: %v", compute.ErrTransfer, err)
	}
	return nil
}

// Read copies len(dst) bytes of buf starting at offset into dst.
func (q *Queue) Read(buf compute.Buffer, offset int, dst []byte) error {
	b, err := transfer(buf, offset, len(dst))
	if err != nil || len(dst) == 0 {
		return err
	}
	if _, err := q.q.EnqueueReadBuffer(b.mem, true, offset, len(dst), unsafe.Pointer(&dst[0]), nil); err != nil {
		return fmt.Errorf("%w: read: %v", compute.ErrTransfer, err)
	}
	return nil
}

func transfer(buf compute.Buffer, offset, n int) (*Buffer, error) {
	b, ok := buf.(*Buffer)
	if !ok {
		return nil, fmt.Errorf("%w: foreign buffer %T", compute.ErrTransfer, buf)
	}
	if offset < 0 || offset+n > b.size {
		return nil, fmt.Errorf("%w: %d bytes at offset %d exceeds buffer of %d", compute.ErrTransfer, n, offset, b.size)
	}
	return b, nil
}

// Dispatch enqueues k over global work-items.
func (q *Queue) Dispatch(k compute.Kernel, global, local int) (compute.Event, error) {
	kk, ok := k.(*Kernel)
	if !ok {
		return nil, fmt.Errorf("%w: foreign kernel %T", compute.ErrDispatch, k)
	}
	if global <= 0 || local < 0 {
		return nil, fmt.Errorf("%w: %s: global %d local %d", compute.ErrDispatch, kk.name, global, local)
	}
	var localSize []int
	if local > 0 {
		localSize = []int{local}
	}
	ev, err := q.q.EnqueueNDRangeKernel(kk.k, nil, []int{global}, localSize, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", compute.ErrDispatch, kk.name, err)
	}
	return &Event{ev: ev, profiling: q.profiling}, nil
}

func (q *Queue) Finish() error {
	if err := q.q.Finish(); err != nil {
		return fmt.Errorf("%w: finish: %v", compute.ErrDispatch, err)
	}
	return nil
}

func (q *Queue) Release() { q.q.Release() }

// Event wraps a cl.Event returned by a dispatch.
type Event struct {
	ev        *cl.Event
	profiling bool
}

func (e *Event) Wait() error {
	if err := cl.WaitForEvents([]*cl.Event{e.ev}); err != nil {
		return fmt.Errorf("%w: %v", compute.ErrDispatch, err)
	}
	return nil
}

// Profile returns the device start and end timestamps of the command.
func (e *Event) Profile() (compute.Profile, error) {
	if !e.profiling {
		return compute.Profile{}, compute.ErrProfilingUnavailable
	}
	start, err := e.ev.GetEventProfilingInfo(cl.ProfilingInfoCommandStart)
	if err != nil {
		return compute.Profile{}, fmt.Errorf("%w: %v", compute.ErrProfilingUnavailable, err)
	}
	end, err := e.ev.GetEventProfilingInfo(cl.ProfilingInfoCommandEnd)
	if err != nil {
		return compute.Profile{}, fmt.Errorf("%w: %v", compute.ErrProfilingUnavailable, err)
	}
	return compute.Profile{Start: uint64(start), End: uint64(end)}, nil
}

func (e *Event) Release() { e.ev.Release() }

func init() {
	compute.Register(NewPlatform(), 0)
}
