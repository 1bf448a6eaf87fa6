package life

import (
	"encoding/binary"
	"fmt"

	"multilife/internal/compute"
	"multilife/internal/kernels"
)

// pipe_producer(grid, n, out) and pipe_consumer(in, partial, num_items).
const (
	argProducerGrid = 0
	packetSize      = 4
)

// population counts live cells on the device. The producer writes one
// partial count per work-item into the pipe and the consumer drains slot i
// into partial[i]; only the partial sums cross to the host.
type population struct {
	producer compute.Kernel
	consumer compute.Kernel
	pipe     compute.Pipe
	partial  compute.Buffer
	capacity int
	scratch  []byte
}

func newPopulation(ctx compute.Context, prog compute.Program, n, capacity int) (*population, error) {
	p := &population{capacity: capacity}
	if err := p.create(ctx, prog, n); err != nil {
		p.release()
		return nil, fmt.Errorf("%w: %v", compute.ErrOptionalFeatureUnavailable, err)
	}
	p.scratch = make([]byte, packetSize*capacity)
	return p, nil
}

func (p *population) create(ctx compute.Context, prog compute.Program, n int) error {
	var err error
	if p.producer, err = prog.Kernel(kernels.PipeProducer); err != nil {
		return err
	}
	if p.consumer, err = prog.Kernel(kernels.PipeConsumer); err != nil {
		return err
	}
	if p.pipe, err = ctx.NewPipe(packetSize, p.capacity); err != nil {
		return err
	}
	if p.partial, err = ctx.NewBuffer(packetSize * p.capacity); err != nil {
		return err
	}
	if err := p.producer.SetArg(1, uint32(n)); err != nil {
		return err
	}
	if err := p.producer.SetArg(2, p.pipe); err != nil {
		return err
	}
	if err := p.consumer.SetArg(0, p.pipe); err != nil {
		return err
	}
	if err := p.consumer.SetArg(1, p.partial); err != nil {
		return err
	}
	return p.consumer.SetArg(2, uint32(p.capacity))
}

// count returns the number of non-zero cells in grid.
func (p *population) count(q compute.Queue, grid compute.Buffer) (uint32, error) {
	if err := p.producer.SetArg(argProducerGrid, grid); err != nil {
		return 0, err
	}
	if err := p.run(q, p.producer); err != nil {
		// Empty whatever slots the producer filled so the next tick starts clean.
		_ = p.run(q, p.consumer)
		return 0, err
	}
	if err := p.run(q, p.consumer); err != nil {
		return 0, err
	}
	if err := q.Read(p.partial, 0, p.scratch); err != nil {
		return 0, err
	}
	var sum uint32
	for i := 0; i < p.capacity; i++ {
		sum += binary.LittleEndian.Uint32(p.scratch[packetSize*i:])
	}
	return sum, nil
}

func (p *population) run(q compute.Queue, k compute.Kernel) error {
	ev, err := q.Dispatch(k, p.capacity, 0)
	if err != nil {
		return err
	}
	defer ev.Release()
	return ev.Wait()
}

func (p *population) release() {
	for _, k := range []compute.Kernel{p.producer, p.consumer} {
		if k != nil {
			k.Release()
		}
	}
	if p.pipe != nil {
		p.pipe.Release()
	}
	if p.partial != nil {
		p.partial.Release()
	}
	*p = population{}
}
