package host

import (
	"fmt"
	"time"

	"multilife/internal/compute"
)

// pipePacketSize is the only packet size host pipes carry.
const pipePacketSize = 4

// Context owns the buffers, pipes and programs of one host device.
type Context struct {
	device   *Device
	released bool
}

func (c *Context) Device() compute.Device { return c.device }

// NewQueue returns an in-order queue. Profiling timestamps are taken
// relative to the queue's creation.
func (c *Context) NewQueue(profiling bool) (compute.Queue, error) {
	if c.released {
		return nil, compute.ErrReleased
	}
	return &Queue{ctx: c, profiling: profiling, origin: time.Now()}, nil
}

// NewBuffer allocates size bytes of device memory.
func (c *Context) NewBuffer(size int) (compute.Buffer, error) {
	if c.released {
		return nil, compute.ErrReleased
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d", compute.ErrBufferAllocation, size)
	}
	return &Buffer{ctx: c, data: make([]byte, size)}, nil
}

// NewPipe creates a channel of capacity 4-byte packets.
func (c *Context) NewPipe(packetSize, capacity int) (compute.Pipe, error) {
	if c.released {
		return nil, compute.ErrReleased
	}
	if packetSize != pipePacketSize {
		return nil, fmt.Errorf("%w: host pipes carry %d-byte packets, got %d", compute.ErrResourceCreation, pipePacketSize, packetSize)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: pipe capacity %d", compute.ErrResourceCreation, capacity)
	}
	return &Pipe{ctx: c, slots: make([]uint32, capacity), full: make([]bool, capacity)}, nil
}

// BuildProgram compiles Go kernel source.
func (c *Context) BuildProgram(src string) (compute.Program, error) {
	if c.released {
		return nil, compute.ErrReleased
	}
	p, err := buildProgram(c, src)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Context) Release() { c.released = true }

// Buffer is host memory standing in for device memory.
type Buffer struct {
	ctx  *Context
	data []byte
}

func (b *Buffer) Size() int { return len(b.data) }

func (b *Buffer) Release() { b.data = nil }

func (b *Buffer) released() bool { return b.data == nil }

// Pipe is a fixed array of packet slots. Work-item i of a dispatch owns
// slot i on both the producer and the consumer side.
type Pipe struct {
	ctx   *Context
	slots []uint32
	full  []bool
}

func (p *Pipe) PacketSize() int { return pipePacketSize }
func (p *Pipe) Capacity() int   { return len(p.slots) }

func (p *Pipe) Release() {
	p.slots = nil
	p.full = nil
}

func (p *Pipe) released() bool { return p.slots == nil }

// writer returns the write end for work-item gid. The write fails when gid
// has no slot or the slot still holds an unread packet.
func (p *Pipe) writer(gid int) func(uint32) bool {
	return func(v uint32) bool {
		if gid >= len(p.slots) || p.full[gid] {
			return false
		}
		p.slots[gid] = v
		p.full[gid] = true
		return true
	}
}

// reader returns the read end for work-item gid.
func (p *Pipe) reader(gid int) func() (uint32, bool) {
	return func() (uint32, bool) {
		if gid >= len(p.slots) || !p.full[gid] {
			return 0, false
		}
		p.full[gid] = false
		return p.slots[gid], true
	}
}
