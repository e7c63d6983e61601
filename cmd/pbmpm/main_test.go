package main

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/pbmpm"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// =============================================================================
// Command Tests
// =============================================================================

func TestRunCmd(t *testing.T) {
	path := writeScene(t, testScene)

	for _, backend := range []string{"cpu", "emulator"} {
		t.Run(backend, func(t *testing.T) {
			out, err := execute(t, "run", "--scene", path, "--backend", backend, "--workers", "2")
			require.NoError(t, err, out)
			assert.Contains(t, out, "particles: 20")
			assert.Contains(t, out, "steps:     3")
			assert.NotContains(t, out, "non-finite")
		})
	}
}

func TestRunCmd_Snapshot(t *testing.T) {
	png := filepath.Join(t.TempDir(), "final.png")
	out, err := execute(t, "run", "--scene", writeScene(t, testScene), "--png", png, "--scale", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "snapshot:")
	assert.FileExists(t, png)
}

func TestRunCmd_StepsOverride(t *testing.T) {
	out, err := execute(t, "run", "--scene", writeScene(t, testScene), "--steps", "1")
	require.NoError(t, err, out)
	assert.Contains(t, out, "steps:     1")
}

func TestRunCmd_Errors(t *testing.T) {
	_, err := execute(t, "run", "--backend", "quantum")
	assert.Error(t, err)

	_, err = execute(t, "run", "--steps=-1")
	assert.Error(t, err)

	_, err = execute(t, "run", "--scene", "does-not-exist.yaml")
	assert.Error(t, err)

	_, err = execute(t, "run", "extra")
	assert.Error(t, err)
}

func TestCompareCmd(t *testing.T) {
	out, err := execute(t, "compare", "--scene", writeScene(t, testScene), "--device", "emulator")
	require.NoError(t, err, out)
	assert.Contains(t, out, "max dev:")
	assert.Contains(t, out, "reference: cpu")

	_, err = execute(t, "compare", "--device", "tpu")
	assert.Error(t, err)
}

func TestCompareBackends(t *testing.T) {
	s, err := ParseScene([]byte(testScene))
	require.NoError(t, err)

	res, err := compareBackends(context.Background(), &s, deviceEmulator, 2)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Count)
	assert.Less(t, res.MaxDeviation, float32(0.05))
	assert.LessOrEqual(t, res.MeanDeviation, res.MaxDeviation)
}

func TestSimulate_Canceled(t *testing.T) {
	s, err := ParseScene([]byte(testScene))
	require.NoError(t, err)

	sim, err := openSimulation("cpu", &s, 1)
	require.NoError(t, err)
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = simulate(ctx, sim, &s)
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Summary Tests
// =============================================================================

func TestSummarize(t *testing.T) {
	ps := []pbmpm.Particle{
		pbmpm.NewParticle(pbmpm.V2(1, 2), pbmpm.Liquid, 1),
		pbmpm.NewParticle(pbmpm.V2(3, 6), pbmpm.Liquid, 1),
		pbmpm.NewParticle(pbmpm.V2(float32(math.NaN()), 0), pbmpm.Liquid, 1),
	}
	s := summarize(ps)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 1, s.NonFinite)
	assert.Equal(t, pbmpm.V2(2, 4), s.Centroid)
	assert.Equal(t, pbmpm.V2(1, 2), s.Min)
	assert.Equal(t, pbmpm.V2(3, 6), s.Max)

	assert.Equal(t, Summary{}, summarize(nil))
}
