package sysfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAttrDir lays out a fake simtemp attribute directory.
func newAttrDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "simtemp")
	require.NoError(t, os.Mkdir(dir, 0755))
	files := map[string]string{
		SamplingMs:  "100\n",
		ThresholdMC: "45000\n",
		ModeAttr:    "normal\n",
		Stats:       "samples=12 alerts=0\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestOpen(t *testing.T) {
	dir := newAttrDir(t)

	d, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, d.Base())

	_, err = Open("")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = Open(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = Open(filepath.Join(dir, SamplingMs))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReadTrims(t *testing.T) {
	d, err := Open(newAttrDir(t))
	require.NoError(t, err)

	v, ok := d.Read(SamplingMs)
	assert.True(t, ok)
	assert.Equal(t, "100", v)

	v, ok = d.Read(Stats)
	assert.True(t, ok)
	assert.Equal(t, "samples=12 alerts=0", v)
}

func TestReadMissingIsAbsent(t *testing.T) {
	d, err := Open(newAttrDir(t))
	require.NoError(t, err)

	v, ok := d.Read("no_such_attr")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestWriteThenRead(t *testing.T) {
	d, err := Open(newAttrDir(t))
	require.NoError(t, err)

	require.NoError(t, d.Write(SamplingMs, 250))
	require.NoError(t, d.Write(ThresholdMC, int32(-1500)))
	require.NoError(t, d.Write(ModeAttr, ModeNoisy))

	v, _ := d.Read(SamplingMs)
	assert.Equal(t, "250", v)
	v, _ = d.Read(ThresholdMC)
	assert.Equal(t, "-1500", v)
	v, _ = d.Read(ModeAttr)
	assert.Equal(t, "noisy", v)

	// Last write wins, shorter values leave no trailing bytes behind.
	require.NoError(t, d.Write(SamplingMs, 5))
	v, _ = d.Read(SamplingMs)
	assert.Equal(t, "5", v)
}

func TestWriteFailures(t *testing.T) {
	d, err := Open(newAttrDir(t))
	require.NoError(t, err)

	tests := []struct {
		name  string
		attr  string
		value any
	}{
		{"invalid mode", ModeAttr, Mode("turbo")},
		{"read-only stats", Stats, "reset"},
		{"missing attribute", "no_such_attr", 1},
		{"unsupported value", SamplingMs, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Write(tt.attr, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrWriteFailed)

			var we *WriteError
			require.True(t, errors.As(err, &we))
			assert.Equal(t, tt.attr, we.Name)
		})
	}

	v, _ := d.Read(ModeAttr)
	assert.Equal(t, "normal", v, "rejected mode must not reach the store")
	_, err = os.Stat(filepath.Join(d.Base(), "no_such_attr"))
	assert.True(t, os.IsNotExist(err), "writes never create attributes")
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"simtemp0", "simtemp"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0755))
	}

	got, err := Discover(filepath.Join(root, "simtemp*"), "simtemp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "simtemp"), got)

	got, err = Discover(filepath.Join(root, "simtemp0*"), "simtemp")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "simtemp0"), got)

	_, err = Discover(filepath.Join(root, "nothing*"), "simtemp")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSnapshot(t *testing.T) {
	dir := newAttrDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, Stats)))
	d, err := Open(dir)
	require.NoError(t, err)

	entries := Snapshot(d)
	require.Len(t, entries, len(Known))
	assert.Equal(t, "sampling_ms: 100", entries[0].String())
	assert.Equal(t, "threshold_mC: 45000", entries[1].String())
	assert.Equal(t, "mode: normal", entries[2].String())
	assert.Equal(t, "stats: None", entries[3].String())
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("NOISY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "normal, noisy, ramp")
	assert.False(t, Mode("turbo").Valid())
}
