package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/simtemp/internal/config"
	"github.com/luki/simtemp/internal/sample"
)

// fixture lays out a device file holding the given records and a sysfs
// directory holding the given attributes.
type fixture struct {
	dev   string
	sysfs string
}

func newFixture(t *testing.T, attrs map[string]string, records ...sample.Sample) fixture {
	t.Helper()
	root := t.TempDir()

	var raw []byte
	for _, s := range records {
		raw = s.AppendBinary(raw)
	}
	dev := filepath.Join(root, "simtemp")
	require.NoError(t, os.WriteFile(dev, raw, 0644))

	base := filepath.Join(root, "sys", "simtemp")
	require.NoError(t, os.MkdirAll(base, 0755))
	for name, v := range attrs {
		require.NoError(t, os.WriteFile(filepath.Join(base, name), []byte(v+"\n"), 0644))
	}
	return fixture{dev: dev, sysfs: base}
}

func defaultAttrs() map[string]string {
	return map[string]string{
		"sampling_ms":  "20",
		"threshold_mC": "45000",
		"mode":         "normal",
		"stats":        "samples=3 alerts=0",
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestShowSysfs(t *testing.T) {
	fx := newFixture(t, defaultAttrs())

	code, out, _ := runCLI(t, "--sysfs", fx.sysfs, "--show-sysfs")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "sampling_ms: 20\nthreshold_mC: 45000\nmode: normal\nstats: samples=3 alerts=0\n", out)

	code, _, _ = runCLI(t, "--sysfs", filepath.Join(fx.sysfs, "missing"), "--show-sysfs")
	assert.Equal(t, exitStoreNotFound, code)
}

func TestMonitorCount(t *testing.T) {
	fx := newFixture(t, defaultAttrs(),
		sample.Sample{TimestampNs: 1709294400123000000, TempMilliC: 24500, Flags: 1},
		sample.Sample{TimestampNs: 1709294400223000000, TempMilliC: -500, Flags: 3},
		sample.Sample{TimestampNs: 1709294400323000000, TempMilliC: 1, Flags: 1},
	)

	code, out, _ := runCLI(t, "--dev", fx.dev, "--count", "2")
	assert.Equal(t, exitOK, code)
	assert.Equal(t,
		"2024-03-01T12:00:00.123Z temp=24.500C alert=0\n"+
			"2024-03-01T12:00:00.223Z temp=-0.500C alert=1\n", out)
}

func TestMonitorStreamEnd(t *testing.T) {
	fx := newFixture(t, defaultAttrs(), sample.Sample{TempMilliC: 1000})

	code, out, errOut := runCLI(t, "--dev", fx.dev)
	assert.Equal(t, exitFailure, code)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, errOut, "device stream closed")
}

func TestConfigure(t *testing.T) {
	fx := newFixture(t, defaultAttrs())

	code, out, _ := runCLI(t, "--sysfs", fx.sysfs, "--dev", fx.dev,
		"--sampling-ms", "200", "--threshold-mC", "30000", "--mode", "ramp", "--count", "1")
	// The device file is empty, so monitoring after configuration ends the stream.
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "sampling_ms -> 200 ms")
	assert.Contains(t, out, "threshold_mC -> 30000 mC")
	assert.Contains(t, out, "mode -> ramp")

	got, err := os.ReadFile(filepath.Join(fx.sysfs, "mode"))
	require.NoError(t, err)
	assert.Equal(t, "ramp", string(got))
}

func TestConfigureWriteFailure(t *testing.T) {
	attrs := defaultAttrs()
	delete(attrs, "sampling_ms")
	fx := newFixture(t, attrs)

	code, out, errOut := runCLI(t, "--sysfs", fx.sysfs, "--sampling-ms", "200", "--mode", "noisy")
	assert.Equal(t, exitWriteFailed, code)
	assert.Contains(t, errOut, "failed to set sampling_ms")
	assert.Contains(t, out, "mode -> noisy", "remaining fields are still applied")
}

func TestConfigureStoreNotFound(t *testing.T) {
	code, _, errOut := runCLI(t, "--sysfs", filepath.Join(t.TempDir(), "nope"), "--mode", "noisy")
	assert.Equal(t, exitStoreNotFound, code)
	assert.Contains(t, errOut, "sysfs not found")
}

func TestProbeExitCodes(t *testing.T) {
	t.Run("baseline read failure", func(t *testing.T) {
		fx := newFixture(t, defaultAttrs())
		code, _, errOut := runCLI(t, "--sysfs", fx.sysfs, "--dev", fx.dev, "--test")
		assert.Equal(t, exitBaselineRead, code)
		assert.Contains(t, errOut, "baseline")
	})

	t.Run("configuration failure", func(t *testing.T) {
		attrs := defaultAttrs()
		delete(attrs, "threshold_mC")
		fx := newFixture(t, attrs, sample.Sample{TempMilliC: 24000, Flags: 1})
		code, _, _ := runCLI(t, "--sysfs", fx.sysfs, "--dev", fx.dev, "--test")
		assert.Equal(t, exitProbeConfig, code)
	})

	t.Run("no alert flag", func(t *testing.T) {
		fx := newFixture(t, defaultAttrs(), sample.Sample{TempMilliC: 24000, Flags: 1})
		code, out, _ := runCLI(t, "--sysfs", fx.sysfs, "--dev", fx.dev, "--test")
		assert.Equal(t, exitProbeFailed, code)
		assert.Contains(t, out, "no alert flag")
		assert.Contains(t, out, "TEST: FAILED (no_alert_flag)")

		got, err := os.ReadFile(filepath.Join(fx.sysfs, "threshold_mC"))
		require.NoError(t, err)
		assert.Equal(t, "24001", string(got))
	})

	t.Run("success", func(t *testing.T) {
		fx := newFixture(t, defaultAttrs(), sample.Sample{TempMilliC: 24000, Flags: 3})
		code, out, _ := runCLI(t, "--sysfs", fx.sysfs, "--dev", fx.dev, "--test")
		assert.Equal(t, exitOK, code)
		assert.Contains(t, out, "TEST: alert observed - success")
	})

	t.Run("store not found", func(t *testing.T) {
		code, _, _ := runCLI(t, "--sysfs", filepath.Join(t.TempDir(), "nope"), "--test")
		assert.Equal(t, exitStoreNotFound, code)
	})
}

func TestSettingsFileFromEnv(t *testing.T) {
	settings := filepath.Join(t.TempDir(), "simtemp.yaml")
	missing := filepath.Join(t.TempDir(), "missing")
	require.NoError(t, os.WriteFile(settings, []byte("device:\n  sysfs_base: "+missing+"\n"), 0644))
	t.Setenv(config.PathEnv, settings)

	code, _, errOut := runCLI(t, "--show-sysfs")
	assert.Equal(t, exitStoreNotFound, code)
	assert.Contains(t, errOut, "sysfs not found")
}

func TestFlagErrors(t *testing.T) {
	code, _, errOut := runCLI(t, "--mode", "turbo")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, errOut, "invalid mode")

	code, _, _ = runCLI(t, "--count", "-1")
	assert.Equal(t, exitFailure, code)

	code, _, _ = runCLI(t, "--sampling-ms", "fast")
	assert.Equal(t, exitFailure, code)

	code, _, _ = runCLI(t, "-h")
	assert.Equal(t, exitOK, code)
}
