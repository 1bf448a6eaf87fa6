package host

import (
	"fmt"
	"go/parser"
	"go/token"
	"reflect"
	"strings"
	"unicode"

	"github.com/cogentcore/yaegi/interp"

	"multilife/internal/compute"
)

// Program is Go kernel source evaluated by an interpreter instance.
type Program struct {
	ctx  *Context
	pkg  string
	in   *interp.Interpreter
	done bool
}

func buildProgram(ctx *Context, src string) (*Program, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "kernel.go", src, parser.PackageClauseOnly)
	if err != nil {
		return nil, &compute.BuildError{Log: err.Error()}
	}
	out := kernelOutput{pkg: f.Name.Name}
	in := interp.New(interp.Options{Stdout: out, Stderr: out})
	if _, err := in.Eval(src); err != nil {
		return nil, &compute.BuildError{Log: err.Error()}
	}
	return &Program{ctx: ctx, pkg: f.Name.Name, in: in}, nil
}

// Kernel resolves the entry point name and checks its signature.
func (p *Program) Kernel(name string) (compute.Kernel, error) {
	if p.done {
		return nil, compute.ErrReleased
	}
	sym := p.pkg + "." + entrySymbol(name)
	v, err := p.in.Eval(sym)
	if err != nil {
		return nil, fmt.Errorf("%w: kernel %q: %v", compute.ErrResourceCreation, name, err)
	}
	if v.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: kernel %q: %s is a %s, not a function", compute.ErrResourceCreation, name, sym, v.Kind())
	}
	t := v.Type()
	if t.NumIn() < 2 || t.In(0).Kind() != reflect.Int || t.In(1).Kind() != reflect.Int {
		return nil, fmt.Errorf("%w: kernel %q: first parameters must be (gid, gsize int), have %s", compute.ErrResourceCreation, name, t)
	}
	if t.NumOut() != 0 || t.IsVariadic() {
		return nil, fmt.Errorf("%w: kernel %q: entry points take fixed arguments and return nothing, have %s", compute.ErrResourceCreation, name, t)
	}
	params := make([]reflect.Type, t.NumIn()-2)
	for i := range params {
		params[i] = t.In(i + 2)
		if !bindable(params[i]) {
			return nil, fmt.Errorf("%w: kernel %q: argument %d has unsupported type %s", compute.ErrResourceCreation, name, i, params[i])
		}
	}
	return &Kernel{
		prog:   p,
		name:   name,
		fn:     v,
		params: params,
		args:   make([]arg, len(params)),
	}, nil
}

// Release drops the interpreter. Kernels already created keep working.
func (p *Program) Release() {
	p.done = true
	p.in = nil
}

// kernelOutput routes interpreter output, including the traces of
// recovered kernel panics, to the diagnostic sink.
type kernelOutput struct {
	pkg string
}

func (o kernelOutput) Write(b []byte) (int, error) {
	compute.Logger().Debug("kernel output", "program", o.pkg, "text", strings.TrimRight(string(b), "\n"))
	return len(b), nil
}

// entrySymbol maps a snake_case entry point to its exported Go identifier.
func entrySymbol(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		r := []rune(part)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
