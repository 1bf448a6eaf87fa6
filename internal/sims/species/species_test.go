package species

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multilife/internal/compute"
	"multilife/internal/core"
	"multilife/internal/sims/scan"
)

func smallConfig() Config {
	c := DefaultConfig()
	c.Width, c.Height, c.Species = 16, 12, 4
	return c
}

func TestFromMap(t *testing.T) {
	c := FromMap(map[string]string{
		"w":          "32",
		"h":          "24",
		"species":    "3",
		"work_items": "100",
		"local_size": "8",
		"pipe":       "16",
		"device":     "cpu",
		"reduction":  "false",
		"colorize":   "0",
	})
	assert.Equal(t, 32, c.Width)
	assert.Equal(t, 24, c.Height)
	assert.Equal(t, 3, c.Species)
	assert.Equal(t, 100, c.WorkItems)
	assert.Equal(t, 8, c.LocalSize)
	assert.Equal(t, 16, c.PipeCapacity)
	assert.Equal(t, compute.DeviceTypeCPU, c.Device)
	assert.False(t, c.Reduction)
	assert.False(t, c.Colorize)

	d := FromMap(map[string]string{"species": "0", "device": "fpga", "w": "-3"})
	assert.Equal(t, DefaultConfig(), d)
	assert.Equal(t, DefaultConfig(), FromMap(nil))
}

func TestStepMatchesScan(t *testing.T) {
	cfg := smallConfig()
	s, err := New(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	s.Reset(21)
	ref := scan.New(cfg.Width, cfg.Height, cfg.Species)
	ref.Reset(21)
	require.Equal(t, ref.Cells(), s.Cells())

	for gen := 1; gen <= 5; gen++ {
		s.Step()
		ref.Step()
		require.Equal(t, ref.Cells(), s.Cells(), "generation %d", gen)
	}
	assert.Zero(t, s.Failures())
	assert.EqualValues(t, 5, s.Stats().Generation)
	require.NotNil(t, s.RGBA())
	assert.Len(t, s.RGBA(), 4*cfg.Width*cfg.Height)
}

func TestResetStartsFreshSession(t *testing.T) {
	cfg := smallConfig()
	cfg.Colorize = false
	s, err := New(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	s.Reset(1)
	s.Step()
	s.Step()
	s.Reset(2)
	assert.Zero(t, s.Stats().Generation)

	ref := scan.New(cfg.Width, cfg.Height, cfg.Species)
	ref.Reset(2)
	s.Step()
	ref.Step()
	assert.Equal(t, ref.Cells(), s.Cells(), "reset must reseed the device")
	assert.Nil(t, s.RGBA())
}

func TestIntParameters(t *testing.T) {
	cfg := smallConfig()
	cfg.Colorize = false
	s, err := New(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.SetIntParameter("work_items", 50))
	assert.True(t, s.SetIntParameter("local_size", 4))
	assert.False(t, s.SetIntParameter("local_size", -1))
	limit, ok := s.IntParameter("max_local_size")
	require.True(t, ok)
	assert.Equal(t, 1024, limit)
	assert.False(t, s.SetIntParameter("local_size", 2*limit))
	assert.True(t, s.SetIntParameter("local_size", limit))
	assert.True(t, s.SetIntParameter("local_size", 4))
	assert.False(t, s.SetIntParameter("species", 3))

	v, ok := s.IntParameter("work_items")
	assert.True(t, ok)
	assert.Equal(t, 50, v)
	v, ok = s.IntParameter("local_size")
	assert.True(t, ok)
	assert.Equal(t, 4, v)
	_, ok = s.IntParameter("nope")
	assert.False(t, ok)

	st := s.Stats()
	assert.Equal(t, 50, st.WorkItems)
	assert.Equal(t, 4, st.LocalSize)

	params := map[string]string{}
	for _, g := range s.Parameters().Groups {
		for _, p := range g.Params {
			params[p.Key] = p.Value
		}
	}
	assert.Equal(t, "50", params["work_items"])
	assert.Equal(t, "4", params["local_size"])
	assert.Equal(t, "true", params["reduction"])
	assert.Contains(t, params, "kernel_ms")
	assert.Contains(t, params, "live_cells")
}

func TestRegisteredFactory(t *testing.T) {
	sim, err := core.New("species", map[string]string{"w": "8", "h": "8", "species": "2", "colorize": "false"})
	require.NoError(t, err)
	defer sim.(*Sim).Close()
	assert.Equal(t, "species", sim.Name())
	assert.Equal(t, core.Size{W: 8, H: 8}, sim.Size())

	_, err = core.New("species", map[string]string{"device": "gpu"})
	assert.ErrorIs(t, err, compute.ErrDeviceUnavailable)
}
