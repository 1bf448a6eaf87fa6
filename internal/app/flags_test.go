package app

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet(c *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	c.Bind(fs)
	return fs
}

func TestParseFlags(t *testing.T) {
	c := NewConfig()
	fs := newFlagSet(c)
	require.NoError(t, c.Parse(fs, []string{"-w", "64", "-species", "3", "-local-size", "16", "-reduction=false"}))
	assert.Equal(t, 64, c.Width)
	assert.Equal(t, 768, c.Height)
	assert.Equal(t, 3, c.Species)
	assert.Equal(t, 16, c.LocalSize)
	assert.False(t, c.Reduction)
}

func TestConfigFileUnderFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "life.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
sim = "scan"
width = 128
height = 96
species = 5
device = "cpu"
colorize = false
`), 0o644))

	c := NewConfig()
	fs := newFlagSet(c)
	require.NoError(t, c.Parse(fs, []string{"-config", path, "-h", "50"}))
	assert.Equal(t, "scan", c.Sim)
	assert.Equal(t, 128, c.Width)
	assert.Equal(t, 50, c.Height, "command line overrides the file")
	assert.Equal(t, 5, c.Species)
	assert.Equal(t, "cpu", c.Device)
	assert.False(t, c.Colorize)
	assert.Equal(t, 64, c.Pipe, "keys absent from the file keep defaults")
	assert.Equal(t, path, c.ConfigFile)
}

func TestConfigFileErrors(t *testing.T) {
	c := NewConfig()
	assert.Error(t, c.LoadFile(filepath.Join(t.TempDir(), "missing.toml")))

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("width = \"wide\"\n"), 0o644))
	assert.Error(t, c.LoadFile(path))
}

func TestSimConfig(t *testing.T) {
	c := NewConfig()
	c.Width, c.WorkItems, c.Device = 10, 7, "gpu"
	m := c.SimConfig()
	assert.Equal(t, "10", m["w"])
	assert.Equal(t, "7", m["work_items"])
	assert.Equal(t, "gpu", m["device"])
	assert.Equal(t, "true", m["reduction"])
}
