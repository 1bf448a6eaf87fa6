package host

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multilife/internal/compute"
)

const fillSrc = `package k

func Fill(gid, gsize int, out []byte, v uint8, n int32) {
	for i := gid; i < int(n); i += gsize {
		out[i] = v
	}
}

func Count(gid, gsize int, in []byte, out func(uint32) bool) {
	var c uint32
	for i := gid; i < len(in); i += gsize {
		if in[i] != 0 {
			c++
		}
	}
	if !out(c) {
		panic("slot")
	}
}

func Drain(gid, gsize int, in func() (uint32, bool), dst []byte) {
	v, _ := in()
	dst[gid] = byte(v)
}

func Boom(gid, gsize int) {
	if gid == 3 {
		panic("boom")
	}
}

func Answer() int { return 42 }

var Value = 1
`

func TestEntrySymbol(t *testing.T) {
	cases := map[string]string{
		"life_step":     "LifeStep",
		"pipe_consumer": "PipeConsumer",
		"fill":          "Fill",
		"a__b":          "AB",
	}
	for in, want := range cases {
		assert.Equal(t, want, entrySymbol(in), in)
	}
}

func TestBuildProgramReportsLog(t *testing.T) {
	ctx := newTestContext(t, compute.DeviceTypeCPU)
	prog, err := ctx.BuildProgram("package k\n\nfunc Fill(gid, gsize int) { undefinedThing() }\n")
	require.Error(t, err)
	assert.Nil(t, prog)
	assert.ErrorIs(t, err, compute.ErrProgramBuild)

	var be *compute.BuildError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, be.Log, "undefinedThing")
}

func TestKernelSignatureChecks(t *testing.T) {
	ctx := newTestContext(t, compute.DeviceTypeCPU)
	prog, err := ctx.BuildProgram(fillSrc)
	require.NoError(t, err)

	k, err := prog.Kernel("fill")
	require.NoError(t, err)
	assert.Equal(t, "fill", k.Name())
	assert.Equal(t, 3, k.NumArgs())

	for _, name := range []string{"missing", "answer", "value"} {
		_, err := prog.Kernel(name)
		assert.ErrorIs(t, err, compute.ErrResourceCreation, name)
	}

	prog.Release()
	_, err = prog.Kernel("fill")
	assert.ErrorIs(t, err, compute.ErrReleased)
	assert.NoError(t, k.SetArg(1, 1), "kernels outlive their program")
}

func TestSetArgTypeChecks(t *testing.T) {
	ctx := newTestContext(t, compute.DeviceTypeCPU)
	prog, err := ctx.BuildProgram(fillSrc)
	require.NoError(t, err)
	k, err := prog.Kernel("fill")
	require.NoError(t, err)
	buf, err := ctx.NewBuffer(8)
	require.NoError(t, err)
	pipe, err := ctx.NewPipe(4, 1)
	require.NoError(t, err)

	assert.NoError(t, k.SetArg(0, buf))
	assert.NoError(t, k.SetArg(1, uint32(9)))
	assert.NoError(t, k.SetArg(2, 8))

	assert.ErrorIs(t, k.SetArg(0, 5), compute.ErrDispatch)
	assert.ErrorIs(t, k.SetArg(1, buf), compute.ErrDispatch)
	assert.ErrorIs(t, k.SetArg(1, pipe), compute.ErrDispatch)
	assert.ErrorIs(t, k.SetArg(1, -1), compute.ErrDispatch)
	assert.ErrorIs(t, k.SetArg(1, "x"), compute.ErrDispatch)
	assert.ErrorIs(t, k.SetArg(3, 1), compute.ErrDispatch)

	other := newTestContext(t, compute.DeviceTypeCPU)
	foreign, err := other.NewBuffer(8)
	require.NoError(t, err)
	assert.ErrorIs(t, k.SetArg(0, foreign), compute.ErrDispatch)

	buf.Release()
	assert.ErrorIs(t, k.SetArg(0, buf), compute.ErrDispatch)

	k.Release()
	assert.ErrorIs(t, k.SetArg(1, 1), compute.ErrReleased)
}
