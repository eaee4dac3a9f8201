package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pycmarshal/marshal"
	"github.com/pycmarshal/marshal/internal/compress"
)

func readModule(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile("../../testdata/module311.pyc")
	require.NoError(t, err)
	return b
}

func TestLoadConfig(t *testing.T) {

	cfg, err := loadConfig("testdata/dump.toml")
	require.NoError(t, err)
	assert.True(t, cfg.Resolve)
	assert.False(t, cfg.Minimize)
	assert.Equal(t, 1, cfg.Verbosity)

	v, err := cfg.version()
	require.NoError(t, err)
	assert.Equal(t, marshal.V3_11, v)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("colour = \"red\"\n"), 0o644))
	_, err = loadConfig(bad)
	assert.Error(t, err)
}

func TestProcessPyc(t *testing.T) {

	var out bytes.Buffer
	cfg := &config{RoundTrip: true, Resolve: true}
	require.NoError(t, process(cfg, "module311.pyc", readModule(t), &out))

	assert.Contains(t, out.String(), "# module311.pyc (3.11)")
	assert.Contains(t, out.String(), "<module>")
	assert.NotContains(t, out.String(), "# ref ")
}

func TestProcessRaw(t *testing.T) {

	// [1, 'a']
	in := []byte("\xdb\x02\x00\x00\x00\xe9\x01\x00\x00\x00\xda\x01a")

	var out bytes.Buffer
	err := process(&config{Raw: true}, "raw", in, &out)
	assert.Error(t, err, "raw input without a version")

	cfg := &config{Raw: true, Version: "3.11", RoundTrip: true}
	require.NoError(t, process(cfg, "raw", in, &out))
	assert.Contains(t, out.String(), "# ref 2")
}

func TestProcessMaxDepth(t *testing.T) {

	var out bytes.Buffer
	err := process(&config{MaxDepth: 2}, "module311.pyc", readModule(t), &out)
	assert.ErrorIs(t, err, marshal.ErrDepthLimit)

	in := []byte("[\x01\x00\x00\x00[\x01\x00\x00\x00[\x00\x00\x00\x00")
	err = process(&config{Raw: true, Version: "3.11", MaxDepth: 2}, "raw", in, &out)
	assert.ErrorIs(t, err, marshal.ErrDepthLimit)

	require.NoError(t, process(&config{MaxDepth: 100}, "module311.pyc", readModule(t), &out))
}

func TestProcessOutput(t *testing.T) {

	name := filepath.Join(t.TempDir(), "min.pyc.zst")
	cfg := &config{Minimize: true, Output: name}

	var out bytes.Buffer
	require.NoError(t, process(cfg, "module311.pyc", readModule(t), &out))

	b, err := compress.ReadFile(name)
	require.NoError(t, err)
	p, err := marshal.UnmarshalPyc(b)
	require.NoError(t, err)
	assert.Equal(t, marshal.V3_11, p.Version)
}
