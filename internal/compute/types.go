// Package compute describes parallel compute devices and the objects a
// program needs to run kernels on them: contexts, in-order command queues,
// programs, kernels, device buffers, FIFO pipes and profiling events.
//
// Backends live in sub-packages and make themselves available through
// Register. Kernel arguments follow the OpenCL numbering: argument 0 is the
// first parameter after the implicit work-item identity.
package compute

import (
	"fmt"
	"strings"
	"time"
)

// DeviceType is a bit set of device categories.
type DeviceType uint

const (
	DeviceTypeCPU DeviceType = 1 << iota
	DeviceTypeGPU
	DeviceTypeAccelerator

	// DeviceTypeCompute selects general compute-class devices.
	DeviceTypeCompute = DeviceTypeGPU | DeviceTypeAccelerator
	// DeviceTypeAll matches every device.
	DeviceTypeAll = DeviceTypeCPU | DeviceTypeCompute
)

var deviceTypeNames = []struct {
	name string
	typ  DeviceType
}{
	{"all", DeviceTypeAll},
	{"compute", DeviceTypeCompute},
	{"cpu", DeviceTypeCPU},
	{"gpu", DeviceTypeGPU},
	{"accelerator", DeviceTypeAccelerator},
}

// String returns the name ParseDeviceType accepts for t.
func (t DeviceType) String() string {
	for _, n := range deviceTypeNames {
		if n.typ == t {
			return n.name
		}
	}
	var parts []string
	for _, n := range deviceTypeNames[2:] {
		if t&n.typ != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("DeviceType(%d)", uint(t))
	}
	return strings.Join(parts, "|")
}

// ParseDeviceType parses a device category name such as "gpu" or "compute".
// Categories may be combined with '|'.
func ParseDeviceType(s string) (DeviceType, error) {
	var t DeviceType
	for _, part := range strings.Split(s, "|") {
		part = strings.ToLower(strings.TrimSpace(part))
		found := false
		for _, n := range deviceTypeNames {
			if n.name == part {
				t |= n.typ
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("compute: unknown device type %q", part)
		}
	}
	return t, nil
}

// Language identifies the source language a platform compiles.
type Language int

const (
	LanguageGo Language = iota
	LanguageOpenCLC
)

func (l Language) String() string {
	switch l {
	case LanguageGo:
		return "go"
	case LanguageOpenCLC:
		return "opencl-c"
	default:
		return fmt.Sprintf("Language(%d)", int(l))
	}
}

// Platform is a driver that exposes one or more devices.
type Platform interface {
	Name() string
	Language() Language
	// Devices returns the devices whose type intersects want. An empty
	// result with a nil error means the platform has no matching device.
	Devices(want DeviceType) ([]Device, error)
}

// Device is a single compute device.
type Device interface {
	Name() string
	Type() DeviceType
	// ComputeUnits is the number of parallel units the device reports.
	ComputeUnits() int
	MaxWorkGroupSize() int
	Platform() Platform
	NewContext() (Context, error)
}

// Context owns the memory objects and programs created for one device.
type Context interface {
	Device() Device
	NewQueue(profiling bool) (Queue, error)
	NewBuffer(size int) (Buffer, error)
	// NewPipe creates a FIFO channel of capacity packets of packetSize bytes.
	NewPipe(packetSize, capacity int) (Pipe, error)
	// BuildProgram compiles src for the context device. Compile failures
	// are reported as *BuildError.
	BuildProgram(src string) (Program, error)
	Release()
}

// Program is a compiled kernel program.
type Program interface {
	Kernel(name string) (Kernel, error)
	Release()
}

// Kernel is an entry point of a program with its bound arguments.
// Arguments stay bound across dispatches until they are set again.
type Kernel interface {
	Name() string
	NumArgs() int
	// SetArg binds a Buffer, a Pipe or a scalar value to argument index.
	SetArg(index int, value any) error
	Release()
}

// Buffer is a fixed-size block of device memory.
type Buffer interface {
	Size() int
	Release()
}

// Pipe is a bounded device-resident FIFO channel.
type Pipe interface {
	PacketSize() int
	Capacity() int
	Release()
}

// Queue is an in-order command queue. Reads and writes block until the
// transfer completes.
type Queue interface {
	Write(buf Buffer, offset int, src []byte) error
	Read(buf Buffer, offset int, dst []byte) error
	// Dispatch submits k over global work-items grouped by local. A local
	// size of 0 lets the device choose.
	Dispatch(k Kernel, global, local int) (Event, error)
	Finish() error
	Release()
}

// Event tracks a submitted dispatch.
type Event interface {
	// Wait blocks until the command completes and reports its outcome.
	Wait() error
	Profile() (Profile, error)
	Release()
}

// Profile holds device timestamps in nanoseconds of the device clock.
type Profile struct {
	Start uint64
	End   uint64
}

// Elapsed returns End-Start, or 0 when the timestamps are out of order.
func (p Profile) Elapsed() time.Duration {
	if p.End < p.Start {
		return 0
	}
	return time.Duration(p.End - p.Start)
}

// Millis returns the elapsed time in milliseconds.
func (p Profile) Millis() float64 {
	if p.End < p.Start {
		return 0
	}
	return float64(p.End-p.Start) * 1e-6
}
