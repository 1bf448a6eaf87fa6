package compute

import (
	"fmt"
	"log/slog"
)

// Session binds one device and owns its context and profiling-enabled
// command queue. The zero value is ready for Init; Shutdown is safe on a
// session that was never initialized.
type Session struct {
	// Platforms overrides the registered platforms when non-nil.
	Platforms []Platform
	// Want selects the device category. Zero matches every device.
	Want DeviceType
	// Logger receives device selection messages. Nil uses Logger().
	Logger *slog.Logger

	device       Device
	ctx          Context
	queue        Queue
	computeUnits int
}

// Init picks the first device matching Want in platform order and creates
// its context and queue.
func (s *Session) Init() error {
	if s.ctx != nil {
		return fmt.Errorf("compute: session already initialized on %s", s.device.Name())
	}
	want := s.Want
	if want == 0 {
		want = DeviceTypeAll
	}
	plats := s.Platforms
	if plats == nil {
		plats = Platforms()
	}
	log := LoggerOr(s.Logger)
	if len(plats) == 0 {
		return fmt.Errorf("%w: no platforms registered", ErrDeviceUnavailable)
	}

	var dev Device
	for _, p := range plats {
		devs, err := p.Devices(want)
		if err != nil {
			log.Debug("platform device query failed", "platform", p.Name(), "err", err)
			continue
		}
		if len(devs) > 0 {
			dev = devs[0]
			break
		}
	}
	if dev == nil {
		return fmt.Errorf("%w: no %s device on %d platform(s)", ErrDeviceUnavailable, want, len(plats))
	}

	ctx, err := dev.NewContext()
	if err != nil {
		return fmt.Errorf("%w: context on %s: %v", ErrResourceCreation, dev.Name(), err)
	}
	queue, err := ctx.NewQueue(true)
	if err != nil {
		ctx.Release()
		return fmt.Errorf("%w: queue on %s: %v", ErrResourceCreation, dev.Name(), err)
	}

	s.device = dev
	s.ctx = ctx
	s.queue = queue
	s.computeUnits = dev.ComputeUnits()
	log.Info("compute device selected",
		"platform", dev.Platform().Name(),
		"device", dev.Name(),
		"type", dev.Type(),
		"compute_units", s.computeUnits)
	return nil
}

// Shutdown releases the queue and the context.
func (s *Session) Shutdown() {
	if s.queue != nil {
		s.queue.Release()
		s.queue = nil
	}
	if s.ctx != nil {
		s.ctx.Release()
		s.ctx = nil
	}
	s.device = nil
}

// Ready reports whether Init succeeded and Shutdown has not run.
func (s *Session) Ready() bool { return s.ctx != nil }

// Device returns the bound device, or nil before Init.
func (s *Session) Device() Device { return s.device }

// Context returns the execution context, or nil before Init.
func (s *Session) Context() Context { return s.ctx }

// Queue returns the command queue, or nil before Init.
func (s *Session) Queue() Queue { return s.queue }

// ComputeUnits is the parallel-unit count the device reported at Init.
// It keeps its value after Shutdown for diagnostics.
func (s *Session) ComputeUnits() int { return s.computeUnits }
