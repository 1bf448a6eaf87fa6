// Package host is the always-available compute platform. It runs kernels on
// goroutines of the current process and compiles kernel programs written in
// Go at runtime.
//
// A host kernel is an exported Go function whose first two parameters are
// the global work-item id and the global work size:
//
//	func LifeStep(gid, gsize int, src, dst []byte, width, height, species uint32)
//
// Entry points are looked up by snake_case name, so "life_step" resolves to
// LifeStep. Buffer arguments arrive as []byte. A pipe argument arrives as
// func(uint32) bool for the write end and func() (uint32, bool) for the read
// end, bound to the slot of the calling work-item.
package host

import (
	"runtime"

	"multilife/internal/compute"
)

// Rank is the registration rank of the host platform. Hardware platforms
// register below it so they are enumerated first.
const Rank = 100

// maxWorkGroupSize bounds the local size a dispatch may request.
const maxWorkGroupSize = 1024

// Platform exposes a multi-worker accelerator device and a serial CPU device.
type Platform struct {
	devices []*Device
}

// NewPlatform returns a host platform. The accelerator device reports one
// compute unit per GOMAXPROCS slot.
func NewPlatform() *Platform {
	p := &Platform{}
	p.devices = []*Device{
		{name: "host worker pool", typ: compute.DeviceTypeAccelerator, units: runtime.GOMAXPROCS(0), platform: p},
		{name: "host serial", typ: compute.DeviceTypeCPU, units: 1, platform: p},
	}
	return p
}

// Name identifies the platform.
func (p *Platform) Name() string { return "host" }

// Language reports that host programs are Go source.
func (p *Platform) Language() compute.Language { return compute.LanguageGo }

// Devices returns the devices whose type intersects want.
func (p *Platform) Devices(want compute.DeviceType) ([]compute.Device, error) {
	var out []compute.Device
	for _, d := range p.devices {
		if d.typ&want != 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

// Device is a host device.
type Device struct {
	name     string
	typ      compute.DeviceType
	units    int
	platform *Platform
}

func (d *Device) Name() string               { return d.name }
func (d *Device) Type() compute.DeviceType   { return d.typ }
func (d *Device) ComputeUnits() int          { return d.units }
func (d *Device) MaxWorkGroupSize() int      { return maxWorkGroupSize }
func (d *Device) Platform() compute.Platform { return d.platform }

// NewContext creates an execution context on d.
func (d *Device) NewContext() (compute.Context, error) {
	return &Context{device: d}, nil
}

func init() {
	compute.Register(NewPlatform(), Rank)
}
