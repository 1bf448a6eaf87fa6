package life

import (
	"fmt"

	"multilife/internal/compute"
	"multilife/internal/kernels"
)

// argSpecies is the species count argument of
// life_step(src, dst, width, height, species).
const argSpecies = 4

// resources is the program, the two generation buffers and one life_step
// kernel per direction with its arguments already bound.
type resources struct {
	prog     compute.Program
	forward  compute.Kernel // a -> b
	backward compute.Kernel // b -> a
	a, b     compute.Buffer
}

func newResources(ctx compute.Context, src string, w, h, species int) (*resources, error) {
	prog, err := ctx.BuildProgram(src)
	if err != nil {
		return nil, err
	}
	r := &resources{prog: prog}
	if r.forward, err = prog.Kernel(kernels.LifeStep); err != nil {
		r.release()
		return nil, err
	}
	if r.backward, err = prog.Kernel(kernels.LifeStep); err != nil {
		r.release()
		return nil, err
	}
	n := w * h
	if r.a, err = ctx.NewBuffer(n); err != nil {
		r.release()
		return nil, err
	}
	if r.b, err = ctx.NewBuffer(n); err != nil {
		r.release()
		return nil, err
	}
	if err := bind(r.forward, r.a, r.b, w, h, species); err != nil {
		r.release()
		return nil, err
	}
	if err := bind(r.backward, r.b, r.a, w, h, species); err != nil {
		r.release()
		return nil, err
	}
	return r, nil
}

func bind(k compute.Kernel, src, dst compute.Buffer, w, h, species int) error {
	args := []any{src, dst, uint32(w), uint32(h), uint32(species)}
	for i, v := range args {
		if err := k.SetArg(i, v); err != nil {
			return fmt.Errorf("%w: bind %s: %v", compute.ErrResourceCreation, k.Name(), err)
		}
	}
	return nil
}

func (r *resources) bindSpecies(species int) error {
	for _, k := range []compute.Kernel{r.forward, r.backward} {
		if err := k.SetArg(argSpecies, uint32(species)); err != nil {
			return err
		}
	}
	return nil
}

// direction returns the kernel for the current flip state and its
// destination buffer.
func (r *resources) direction(flip bool) (compute.Kernel, compute.Buffer) {
	if flip {
		return r.backward, r.a
	}
	return r.forward, r.b
}

func (r *resources) release() {
	for _, k := range []compute.Kernel{r.forward, r.backward} {
		if k != nil {
			k.Release()
		}
	}
	for _, b := range []compute.Buffer{r.a, r.b} {
		if b != nil {
			b.Release()
		}
	}
	if r.prog != nil {
		r.prog.Release()
	}
	*r = resources{}
}
