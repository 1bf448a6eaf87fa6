package host

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"multilife/internal/compute"
)

// Queue executes commands in submission order. Every command has finished
// by the time the enqueueing call returns.
type Queue struct {
	ctx       *Context
	profiling bool
	origin    time.Time
	released  bool
}

func (q *Queue) now() uint64 { return uint64(time.Since(q.origin)) }

func (q *Queue) check() error {
	if q.released || q.ctx.released {
		return compute.ErrReleased
	}
	return nil
}

// Write copies src into buf at offset.
func (q *Queue) Write(buf compute.Buffer, offset int, src []byte) error {
	b, err := q.buffer(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(src) > len(b.data) {
		return fmt.Errorf("%w: write of %d bytes at offset %d exceeds buffer of %d", compute.ErrTransfer, len(src), offset, len(b.data))
	}
	copy(b.data[offset:], src)
	return nil
}

// Read copies len(dst) bytes of buf starting at offset into dst.
func (q *Queue) Read(buf compute.Buffer, offset int, dst []byte) error {
	b, err := q.buffer(buf)
	if err != nil {
		return err
	}
	if offset < 0 || offset+len(dst) > len(b.data) {
		return fmt.Errorf("%w: read of %d bytes at offset %d exceeds buffer of %d", compute.ErrTransfer, len(dst), offset, len(b.data))
	}
	copy(dst, b.data[offset:])
	return nil
}

func (q *Queue) buffer(buf compute.Buffer) (*Buffer, error) {
	if err := q.check(); err != nil {
		return nil, fmt.Errorf("%w: queue: %v", compute.ErrTransfer, err)
	}
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return nil, fmt.Errorf("%w: buffer %T does not belong to the host platform", compute.ErrTransfer, buf)
	}
	if b.released() {
		return nil, fmt.Errorf("%w: buffer: %v", compute.ErrTransfer, compute.ErrReleased)
	}
	if b.ctx != q.ctx {
		return nil, fmt.Errorf("%w: buffer belongs to another context", compute.ErrTransfer)
	}
	return b, nil
}

// Dispatch runs k over global work-items. Work-groups of local items run
// concurrently on at most ComputeUnits goroutines; items inside a group run
// in order. Submission errors are returned directly, execution errors are
// reported by the event.
func (q *Queue) Dispatch(k compute.Kernel, global, local int) (compute.Event, error) {
	if err := q.check(); err != nil {
		return nil, fmt.Errorf("%w: queue: %v", compute.ErrDispatch, err)
	}
	hk, ok := k.(*Kernel)
	if !ok || hk == nil {
		return nil, fmt.Errorf("%w: kernel %T does not belong to the host platform", compute.ErrDispatch, k)
	}
	if hk.prog.ctx != q.ctx {
		return nil, fmt.Errorf("%w: kernel %s belongs to another context", compute.ErrDispatch, hk.name)
	}
	if global <= 0 {
		return nil, fmt.Errorf("%w: kernel %s: global work size %d", compute.ErrDispatch, hk.name, global)
	}
	dev := q.ctx.device
	if local < 0 || local > dev.MaxWorkGroupSize() {
		return nil, fmt.Errorf("%w: kernel %s: work-group size %d outside [0,%d]", compute.ErrDispatch, hk.name, local, dev.MaxWorkGroupSize())
	}
	if local == 0 {
		local = chooseLocalSize(global, dev.units)
	}
	inv, err := hk.prepare()
	if err != nil {
		return nil, err
	}

	ev := &Event{profiling: q.profiling}
	ev.start = q.now()
	ev.err = run(inv, global, local, dev.units)
	ev.end = q.now()
	return ev, nil
}

func run(inv *invocation, global, local, units int) error {
	groups := (global + local - 1) / local
	if groups == 1 || units <= 1 {
		for first := 0; first < global; first += local {
			if err := inv.runGroup(first, min(first+local, global), global); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(units)
	for first := 0; first < global; first += local {
		last := min(first+local, global)
		g.Go(func() error { return inv.runGroup(first, last, global) })
	}
	return g.Wait()
}

// chooseLocalSize spreads global items over about four groups per unit.
func chooseLocalSize(global, units int) int {
	if units < 1 {
		units = 1
	}
	local := (global + 4*units - 1) / (4 * units)
	return max(1, min(local, maxWorkGroupSize))
}

// Finish is a no-op: commands complete before Dispatch, Read and Write return.
func (q *Queue) Finish() error { return q.check() }

func (q *Queue) Release() { q.released = true }

// Event records the outcome and timestamps of a completed dispatch.
type Event struct {
	start, end uint64
	err        error
	profiling  bool
}

func (e *Event) Wait() error { return e.err }

// Profile returns the start and end timestamps of the dispatch.
func (e *Event) Profile() (compute.Profile, error) {
	if !e.profiling {
		return compute.Profile{}, compute.ErrProfilingUnavailable
	}
	return compute.Profile{Start: e.start, End: e.end}, nil
}

func (e *Event) Release() {}
