package host

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multilife/internal/compute"
)

func TestDispatchFill(t *testing.T) {
	for _, want := range []compute.DeviceType{compute.DeviceTypeCPU, compute.DeviceTypeAccelerator} {
		t.Run(want.String(), func(t *testing.T) {
			ctx := newTestContext(t, want)
			q, err := ctx.NewQueue(true)
			require.NoError(t, err)
			prog, err := ctx.BuildProgram(fillSrc)
			require.NoError(t, err)
			k, err := prog.Kernel("fill")
			require.NoError(t, err)
			buf, err := ctx.NewBuffer(100)
			require.NoError(t, err)

			require.NoError(t, k.SetArg(0, buf))
			require.NoError(t, k.SetArg(1, 7))
			require.NoError(t, k.SetArg(2, 100))

			// Fewer work-items than elements exercises the grid-stride loop.
			for _, local := range []int{0, 1, 3, 13} {
				ev, err := q.Dispatch(k, 13, local)
				require.NoError(t, err)
				require.NoError(t, ev.Wait())
				prof, err := ev.Profile()
				require.NoError(t, err)
				assert.LessOrEqual(t, prof.Start, prof.End)
			}

			got := make([]byte, 100)
			require.NoError(t, q.Read(buf, 0, got))
			for i, v := range got {
				require.Equal(t, byte(7), v, "cell %d", i)
			}
		})
	}
}

func TestDispatchValidation(t *testing.T) {
	ctx := newTestContext(t, compute.DeviceTypeCPU)
	q, err := ctx.NewQueue(false)
	require.NoError(t, err)
	prog, err := ctx.BuildProgram(fillSrc)
	require.NoError(t, err)
	k, err := prog.Kernel("fill")
	require.NoError(t, err)

	_, err = q.Dispatch(k, 4, 0)
	assert.ErrorIs(t, err, compute.ErrDispatch, "unset arguments")

	buf, err := ctx.NewBuffer(4)
	require.NoError(t, err)
	require.NoError(t, k.SetArg(0, buf))
	require.NoError(t, k.SetArg(1, 1))
	require.NoError(t, k.SetArg(2, 4))

	_, err = q.Dispatch(k, 0, 0)
	assert.ErrorIs(t, err, compute.ErrDispatch)
	_, err = q.Dispatch(k, 4, maxWorkGroupSize+1)
	assert.ErrorIs(t, err, compute.ErrDispatch)

	ev, err := q.Dispatch(k, 4, 0)
	require.NoError(t, err)
	_, err = ev.Profile()
	assert.ErrorIs(t, err, compute.ErrProfilingUnavailable)

	q.Release()
	_, err = q.Dispatch(k, 4, 0)
	assert.ErrorIs(t, err, compute.ErrDispatch)
}

func TestDispatchPanicFailsEvent(t *testing.T) {
	ctx := newTestContext(t, compute.DeviceTypeAccelerator)
	q, err := ctx.NewQueue(true)
	require.NoError(t, err)
	prog, err := ctx.BuildProgram(fillSrc)
	require.NoError(t, err)
	k, err := prog.Kernel("boom")
	require.NoError(t, err)

	ev, err := q.Dispatch(k, 8, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, ev.Wait(), compute.ErrDispatch)
}

func TestKernelPanicStaysOffStderr(t *testing.T) {
	var logs bytes.Buffer
	compute.SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { compute.SetLogger(nil) })

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stderr := os.Stderr
	os.Stderr = w
	t.Cleanup(func() { os.Stderr = stderr })

	ctx := newTestContext(t, compute.DeviceTypeCPU)
	q, err := ctx.NewQueue(false)
	require.NoError(t, err)
	prog, err := ctx.BuildProgram(fillSrc)
	require.NoError(t, err)
	k, err := prog.Kernel("boom")
	require.NoError(t, err)
	ev, err := q.Dispatch(k, 8, 0)
	require.NoError(t, err)
	err = ev.Wait()
	assert.ErrorIs(t, err, compute.ErrDispatch)
	assert.Contains(t, err.Error(), "boom")

	os.Stderr = stderr
	require.NoError(t, w.Close())
	leaked, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, string(leaked))
}

func TestKernelOutputLogsAtDebug(t *testing.T) {
	var logs bytes.Buffer
	compute.SetLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { compute.SetLogger(nil) })

	n, err := kernelOutput{pkg: "k"}.Write([]byte("panic: boom\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Contains(t, logs.String(), "kernel output")
	assert.Contains(t, logs.String(), "panic: boom")
}

func TestPipeRoundTrip(t *testing.T) {
	ctx := newTestContext(t, compute.DeviceTypeAccelerator)
	q, err := ctx.NewQueue(true)
	require.NoError(t, err)
	prog, err := ctx.BuildProgram(fillSrc)
	require.NoError(t, err)
	count, err := prog.Kernel("count")
	require.NoError(t, err)
	drain, err := prog.Kernel("drain")
	require.NoError(t, err)

	const items = 4
	in, err := ctx.NewBuffer(10)
	require.NoError(t, err)
	require.NoError(t, q.Write(in, 0, []byte{1, 0, 1, 1, 0, 0, 1, 1, 1, 1}))
	out, err := ctx.NewBuffer(items)
	require.NoError(t, err)
	pipe, err := ctx.NewPipe(4, items)
	require.NoError(t, err)

	require.NoError(t, count.SetArg(0, in))
	require.NoError(t, count.SetArg(1, pipe))
	require.NoError(t, drain.SetArg(0, pipe))
	require.NoError(t, drain.SetArg(1, out))

	ev, err := q.Dispatch(count, items, 0)
	require.NoError(t, err)
	require.NoError(t, ev.Wait())
	ev, err = q.Dispatch(drain, items, 0)
	require.NoError(t, err)
	require.NoError(t, ev.Wait())

	got := make([]byte, items)
	require.NoError(t, q.Read(out, 0, got))
	// gid 0 sees indices 0,4,8; gid 1 sees 1,5,9; gid 2 sees 2,6; gid 3 sees 3,7.
	assert.Equal(t, []byte{2, 1, 2, 2}, got)

	// A second producer pass without draining finds every slot full.
	ev, err = q.Dispatch(count, items, 0)
	require.NoError(t, err)
	require.NoError(t, ev.Wait())
	ev, err = q.Dispatch(count, items, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, ev.Wait(), compute.ErrDispatch)
}

func TestTransferBounds(t *testing.T) {
	ctx := newTestContext(t, compute.DeviceTypeCPU)
	q, err := ctx.NewQueue(false)
	require.NoError(t, err)
	buf, err := ctx.NewBuffer(4)
	require.NoError(t, err)

	assert.ErrorIs(t, q.Write(buf, 2, []byte{1, 2, 3}), compute.ErrTransfer)
	assert.ErrorIs(t, q.Read(buf, -1, make([]byte, 1)), compute.ErrTransfer)
	require.NoError(t, q.Write(buf, 1, []byte{9, 8}))
	got := make([]byte, 4)
	require.NoError(t, q.Read(buf, 0, got))
	assert.Equal(t, []byte{0, 9, 8, 0}, got)

	buf.Release()
	assert.ErrorIs(t, q.Read(buf, 0, got), compute.ErrTransfer)
}

func TestChooseLocalSize(t *testing.T) {
	assert.Equal(t, 1, chooseLocalSize(1, 8))
	assert.Equal(t, 25, chooseLocalSize(100, 1))
	assert.Equal(t, maxWorkGroupSize, chooseLocalSize(1<<24, 1))
	assert.Equal(t, 4, chooseLocalSize(16, 0))
}
