package host

import (
	"fmt"
	"reflect"

	"multilife/internal/compute"
)

var (
	bytesType     = reflect.TypeOf([]byte(nil))
	pipeWriteType = reflect.TypeOf(func(uint32) bool { return false })
	pipeReadType  = reflect.TypeOf(func() (uint32, bool) { return 0, false })
)

type argKind int

const (
	argUnset argKind = iota
	argScalar
	argBuffer
	argPipe
)

type arg struct {
	kind   argKind
	scalar reflect.Value
	buf    *Buffer
	pipe   *Pipe
}

// Kernel is an interpreted entry point plus its bound arguments.
type Kernel struct {
	prog   *Program
	name   string
	fn     reflect.Value
	params []reflect.Type
	args   []arg
}

func (k *Kernel) Name() string { return k.name }
func (k *Kernel) NumArgs() int { return len(k.params) }

// SetArg binds value to argument index after checking it against the
// parameter type of the entry point.
func (k *Kernel) SetArg(index int, value any) error {
	if !k.fn.IsValid() {
		return compute.ErrReleased
	}
	if index < 0 || index >= len(k.params) {
		return fmt.Errorf("%w: kernel %s: argument index %d out of range [0,%d)", compute.ErrDispatch, k.name, index, len(k.params))
	}
	want := k.params[index]
	switch v := value.(type) {
	case *Buffer:
		if want != bytesType {
			return k.mismatch(index, "buffer", want)
		}
		if v.released() {
			return fmt.Errorf("%w: kernel %s: argument %d: buffer %v", compute.ErrDispatch, k.name, index, compute.ErrReleased)
		}
		if v.ctx != k.prog.ctx {
			return fmt.Errorf("%w: kernel %s: argument %d: buffer belongs to another context", compute.ErrDispatch, k.name, index)
		}
		k.args[index] = arg{kind: argBuffer, buf: v}
	case *Pipe:
		if want != pipeWriteType && want != pipeReadType {
			return k.mismatch(index, "pipe", want)
		}
		if v.released() {
			return fmt.Errorf("%w: kernel %s: argument %d: pipe %v", compute.ErrDispatch, k.name, index, compute.ErrReleased)
		}
		if v.ctx != k.prog.ctx {
			return fmt.Errorf("%w: kernel %s: argument %d: pipe belongs to another context", compute.ErrDispatch, k.name, index)
		}
		k.args[index] = arg{kind: argPipe, pipe: v}
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || !isScalar(rv.Kind()) || !isScalar(want.Kind()) {
			return k.mismatch(index, fmt.Sprintf("%T", value), want)
		}
		if isUnsigned(want.Kind()) && isSigned(rv.Kind()) && rv.Int() < 0 {
			return fmt.Errorf("%w: kernel %s: argument %d: negative value %d for %s", compute.ErrDispatch, k.name, index, rv.Int(), want)
		}
		k.args[index] = arg{kind: argScalar, scalar: rv.Convert(want)}
	}
	return nil
}

func (k *Kernel) mismatch(index int, got string, want reflect.Type) error {
	return fmt.Errorf("%w: kernel %s: argument %d: cannot bind %s to parameter of type %s", compute.ErrDispatch, k.name, index, got, want)
}

func (k *Kernel) Release() {
	k.fn = reflect.Value{}
	k.args = nil
}

// invocation is the argument vector of one dispatch. Pipe arguments are
// resolved per work-item.
type invocation struct {
	kernel *Kernel
	argv   []reflect.Value
	pipes  []int
}

func (k *Kernel) prepare() (*invocation, error) {
	if !k.fn.IsValid() {
		return nil, fmt.Errorf("%w: kernel %s: %v", compute.ErrDispatch, k.name, compute.ErrReleased)
	}
	inv := &invocation{kernel: k, argv: make([]reflect.Value, len(k.args))}
	for i, a := range k.args {
		switch a.kind {
		case argUnset:
			return nil, fmt.Errorf("%w: kernel %s: argument %d not set", compute.ErrDispatch, k.name, i)
		case argScalar:
			inv.argv[i] = a.scalar
		case argBuffer:
			if a.buf.released() {
				return nil, fmt.Errorf("%w: kernel %s: argument %d: buffer %v", compute.ErrDispatch, k.name, i, compute.ErrReleased)
			}
			inv.argv[i] = reflect.ValueOf(a.buf.data)
		case argPipe:
			if a.pipe.released() {
				return nil, fmt.Errorf("%w: kernel %s: argument %d: pipe %v", compute.ErrDispatch, k.name, i, compute.ErrReleased)
			}
			inv.pipes = append(inv.pipes, i)
		}
	}
	return inv, nil
}

// runGroup executes work-items [first, last) sequentially. A panic inside
// the kernel fails the group.
func (inv *invocation) runGroup(first, last, global int) (err error) {
	k := inv.kernel
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: kernel %s work-items [%d,%d): %v", compute.ErrDispatch, k.name, first, last, r)
		}
	}()
	in := make([]reflect.Value, len(inv.argv)+2)
	copy(in[2:], inv.argv)
	in[1] = reflect.ValueOf(global)
	for gid := first; gid < last; gid++ {
		in[0] = reflect.ValueOf(gid)
		for _, i := range inv.pipes {
			p := k.args[i].pipe
			if k.params[i] == pipeWriteType {
				in[i+2] = reflect.ValueOf(p.writer(gid))
			} else {
				in[i+2] = reflect.ValueOf(p.reader(gid))
			}
		}
		k.fn.Call(in)
	}
	return nil
}

func bindable(t reflect.Type) bool {
	return t == bytesType || t == pipeWriteType || t == pipeReadType || isScalar(t.Kind())
}

func isScalar(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || k == reflect.Float32 || k == reflect.Float64
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
