package gpu

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gogpu/pbmpm"
)

func testConstants() pbmpm.Constants {
	c := pbmpm.DefaultConstants()
	c.GridWidth = 16
	c.GridHeight = 16
	c.GravityStrength = 0
	return c
}

func newTestSim(t *testing.T, c pbmpm.Constants, opts ...pbmpm.Option) *Simulation {
	t.Helper()
	sim, err := NewEmulated(c, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sim.Close() })
	return sim
}

// liquidBlock fills a square of side n starting at origin with particles
// spaced half a cell apart.
func liquidBlock(origin pbmpm.Vec2, n int, m pbmpm.Material) []pbmpm.Particle {
	ps := make([]pbmpm.Particle, 0, n*n)
	for i := range n {
		for j := range n {
			pos := origin.Add(pbmpm.V2(float32(i)*0.5+0.25, float32(j)*0.5+0.25))
			ps = append(ps, pbmpm.NewParticle(pos, m, 1))
		}
	}
	return ps
}

func positions(ps []pbmpm.Particle) []pbmpm.Vec2 {
	out := make([]pbmpm.Vec2, len(ps))
	for i := range ps {
		out[i] = ps[i].Position
	}
	return out
}

func run(t *testing.T, sim pbmpm.Simulation, ps []pbmpm.Particle, shapes []pbmpm.Shape, steps int) []pbmpm.Particle {
	t.Helper()
	sim.BeginStep()
	for _, p := range ps {
		require.NoError(t, sim.AddParticle(p))
	}
	for _, s := range shapes {
		_, err := sim.AddShape(s)
		require.NoError(t, err)
	}
	for range steps {
		sim.EndStep(1.0 / 60)
		sim.BeginStep()
	}
	return slices.Clone(sim.Particles())
}

// =============================================================================
// Registration Tests
// =============================================================================

func TestRegistered(t *testing.T) {
	assert.Contains(t, pbmpm.Backends(), pbmpm.BackendGPU)
}

// =============================================================================
// Simulation Tests
// =============================================================================

func TestSimulation_Backend(t *testing.T) {
	sim := newTestSim(t, testConstants())
	assert.Equal(t, pbmpm.BackendGPU, sim.Backend())
	assert.True(t, strings.HasPrefix(sim.Device(), "emulator"), sim.Device())
}

func TestSimulation_InvalidConstants(t *testing.T) {
	c := testConstants()
	c.GridWidth = 2

	_, err := NewEmulated(c)
	assert.True(t, errors.Is(err, pbmpm.ErrInvalidConstants), "err = %v", err)

	_, err = New(c)
	assert.True(t, errors.Is(err, pbmpm.ErrInvalidConstants), "err = %v", err)
}

func TestSimulation_SingleElasticParticle(t *testing.T) {
	c := testConstants()
	c.GridWidth, c.GridHeight = 10, 10
	sim := newTestSim(t, c)

	got := run(t, sim, []pbmpm.Particle{pbmpm.NewParticle(pbmpm.V2(5, 5), pbmpm.Elastic, 1)}, nil, 1)

	require.Len(t, got, 1)
	p := got[0].Position
	assert.InDelta(t, 5, p.X, 1)
	assert.InDelta(t, 5, p.Y, 1)
}

func TestSimulation_BeginStepIdle(t *testing.T) {
	sim := newTestSim(t, testConstants())
	sim.BeginStep()
	sim.BeginStep()
	assert.Zero(t, sim.ParticleCount())
}

func TestSimulation_EmptyStep(t *testing.T) {
	sim := newTestSim(t, testConstants())
	got := run(t, sim, nil, nil, 3)
	assert.Empty(t, got)
}

func TestSimulation_ParticleCapacity(t *testing.T) {
	sim := newTestSim(t, testConstants(), pbmpm.WithParticleCapacity(2))

	sim.BeginStep()
	require.NoError(t, sim.AddParticle(pbmpm.NewParticle(pbmpm.V2(8, 8), pbmpm.Liquid, 1)))
	require.NoError(t, sim.AddParticle(pbmpm.NewParticle(pbmpm.V2(8, 9), pbmpm.Liquid, 1)))
	err := sim.AddParticle(pbmpm.NewParticle(pbmpm.V2(8, 10), pbmpm.Liquid, 1))
	assert.True(t, errors.Is(err, pbmpm.ErrParticleCapacity), "err = %v", err)
	assert.Equal(t, 2, sim.ParticleCount())
}

func TestSimulation_Shapes(t *testing.T) {
	sim := newTestSim(t, testConstants(), pbmpm.WithShapeCapacity(1))

	sim.BeginStep()
	i, err := sim.AddShape(pbmpm.NewCircle(pbmpm.V2(8, 8), 2))
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	_, err = sim.AddShape(pbmpm.NewCircle(pbmpm.V2(4, 4), 1))
	assert.True(t, errors.Is(err, pbmpm.ErrShapeCapacity), "err = %v", err)

	require.NoError(t, sim.UpdateShape(0, pbmpm.NewCircle(pbmpm.V2(9, 9), 2)))
	assert.True(t, errors.Is(sim.UpdateShape(1, pbmpm.OffDomainShape()), pbmpm.ErrShapeIndex))
}

func TestSimulation_ParticlesAddedBetweenSteps(t *testing.T) {
	c := testConstants()
	c.GravityStrength = 2.5
	sim := newTestSim(t, c)

	got := run(t, sim, []pbmpm.Particle{pbmpm.NewParticle(pbmpm.V2(6, 10), pbmpm.Elastic, 1)}, nil, 5)
	firstY := got[0].Position.Y

	require.NoError(t, sim.AddParticle(pbmpm.NewParticle(pbmpm.V2(10, 10), pbmpm.Elastic, 1)))
	for range 5 {
		sim.EndStep(1.0 / 60)
		sim.BeginStep()
	}

	ps := sim.Particles()
	require.Len(t, ps, 2)
	assert.Less(t, ps[0].Position.Y, firstY, "resident particle keeps falling")
	assert.Less(t, ps[1].Position.Y, float32(10), "new particle was uploaded")
}

func TestSimulation_ShapeStopsFall(t *testing.T) {
	c := testConstants()
	c.GravityStrength = 2.5
	sim := newTestSim(t, c)

	floor := pbmpm.NewBox(pbmpm.V2(8, 5), pbmpm.V2(6, 1), 0)
	got := run(t, sim, []pbmpm.Particle{pbmpm.NewParticle(pbmpm.V2(8, 7.5), pbmpm.Elastic, 1)}, []pbmpm.Shape{floor}, 120)

	// The box top is at y = 6.
	assert.Greater(t, got[0].Position.Y, float32(5))
}

func TestSimulation_ConfigureKeepsGridSize(t *testing.T) {
	sim := newTestSim(t, testConstants())

	c := testConstants()
	c.GridWidth, c.GridHeight = 64, 64
	c.Iterations = 2
	sim.Configure(c)

	assert.Equal(t, 16, sim.constants.GridWidth)
	assert.Equal(t, 16, sim.constants.GridHeight)
	assert.Equal(t, 2, sim.constants.Iterations)
}

func TestSimulation_ConfigureRejectsInvalid(t *testing.T) {
	sim := newTestSim(t, testConstants())
	want := sim.constants

	c := testConstants()
	c.FixedPointExponent = 12
	c.Iterations = 3
	sim.Configure(c)
	assert.Equal(t, want, sim.constants, "invalid constants must not replace the previous ones")

	// The grid keeps stepping with the previous exponent.
	got := run(t, sim, []pbmpm.Particle{pbmpm.NewParticle(pbmpm.V2(8, 8), pbmpm.Elastic, 1)}, nil, 2)
	assert.InDelta(t, 8, got[0].Position.X, 0.5)
}

func TestFixedRangeExceeded(t *testing.T) {
	tests := []struct {
		n       int
		maxMass float32
		exp     int
		want    bool
	}{
		{0, 0, 6, false},
		{1000, 1, 6, false},
		{1000, 3, 6, true},
		{3, 1, 9, true},
		{2, 1, 9, false},
	}
	for _, tt := range tests {
		if got := fixedRangeExceeded(tt.n, tt.maxMass, tt.exp); got != tt.want {
			t.Errorf("fixedRangeExceeded(%d, %v, %d) = %v, want %v", tt.n, tt.maxMass, tt.exp, got, tt.want)
		}
	}
}

func TestSimulation_FixedRangeDiagnostic(t *testing.T) {
	orig := pbmpm.Logger()
	t.Cleanup(func() { pbmpm.SetLogger(orig) })
	var buf bytes.Buffer
	pbmpm.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	c := testConstants()
	c.FixedPointExponent = 9
	sim := newTestSim(t, c)

	// Three unit masses exceed the ±2.147 range at exponent 9 in the worst
	// case; kept apart they never share a vertex.
	apart := []pbmpm.Particle{
		pbmpm.NewParticle(pbmpm.V2(5, 5), pbmpm.Elastic, 1),
		pbmpm.NewParticle(pbmpm.V2(8, 8), pbmpm.Elastic, 1),
		pbmpm.NewParticle(pbmpm.V2(11, 11), pbmpm.Elastic, 1),
	}
	run(t, sim, apart, nil, 3)

	const msg = "grid mass may exceed the fixed-point range"
	assert.Equal(t, 1, strings.Count(buf.String(), msg), "logged once while the condition holds")
}

func TestSimulation_CloseIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sim, err := NewEmulated(testConstants(), pbmpm.WithWorkers(4))
	require.NoError(t, err)

	sim.BeginStep()
	require.NoError(t, sim.AddParticle(pbmpm.NewParticle(pbmpm.V2(8, 8), pbmpm.Liquid, 1)))
	sim.EndStep(1.0 / 60)

	require.NoError(t, sim.Close())
	require.NoError(t, sim.Close())

	// EndStep after Close is ignored.
	sim.EndStep(1.0 / 60)
}

// =============================================================================
// Cross-Backend Tests
// =============================================================================

func TestEmulator_MatchesCPU(t *testing.T) {
	c := pbmpm.DefaultConstants()
	c.GridWidth, c.GridHeight = 32, 32

	materials := []pbmpm.Material{pbmpm.Liquid, pbmpm.Elastic}
	for _, m := range materials {
		t.Run(m.String(), func(t *testing.T) {
			ps := liquidBlock(pbmpm.V2(14, 14), 4, m)
			shapes := []pbmpm.Shape{pbmpm.NewBox(pbmpm.V2(16, 9), pbmpm.V2(10, 1), 0)}

			cpu, err := pbmpm.NewCPUSimulation(c)
			require.NoError(t, err)
			defer cpu.Close()

			emu := newTestSim(t, c, pbmpm.WithWorkers(4))

			want := run(t, cpu, ps, shapes, 10)
			got := run(t, emu, ps, shapes, 10)

			if diff := cmp.Diff(positions(want), positions(got), cmpopts.EquateApprox(0, 2e-3)); diff != "" {
				t.Errorf("emulator positions differ from CPU (-cpu +emulator):\n%s", diff)
			}
		})
	}
}

func TestEmulator_Deterministic(t *testing.T) {
	c := pbmpm.DefaultConstants()
	c.GridWidth, c.GridHeight = 32, 32
	ps := liquidBlock(pbmpm.V2(12, 14), 6, pbmpm.Liquid)

	a := run(t, newTestSim(t, c, pbmpm.WithWorkers(4)), ps, nil, 8)
	b := run(t, newTestSim(t, c, pbmpm.WithWorkers(3)), ps, nil, 8)

	// Fixed-point sums do not depend on scatter order.
	assert.Equal(t, a, b)
}

// =============================================================================
// Emulator Device Tests
// =============================================================================

func TestEmulator_WriteBounds(t *testing.T) {
	e := newEmulator(1, sizes{particles: 2, shapes: 1, width: 9, height: 9})
	defer e.destroy()

	one := appendParticles(nil, liquidBlock(pbmpm.V2(4, 4), 1, pbmpm.Liquid))

	assert.NoError(t, e.writeParticles(ParticleSize, one))
	assert.Error(t, e.writeParticles(2*ParticleSize, one), "past capacity")
	assert.Error(t, e.writeParticles(3, one), "unaligned offset")
	assert.Error(t, e.writeShapes(make([]byte, 2*ShapeSize)), "too many shapes")
	assert.Error(t, e.writeParams(make([]byte, ParamsSize-4)), "short params")
	assert.Error(t, e.readParticles(make([]byte, 3*ParticleSize)), "read past capacity")
}
