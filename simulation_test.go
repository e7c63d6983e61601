package pbmpm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSimulation records calls for registry and engine tests.
type fakeSimulation struct {
	backend   Backend
	calls     []string
	particles []Particle
	shapes    []Shape
	closed    bool
}

func (f *fakeSimulation) Configure(Constants) { f.calls = append(f.calls, "configure") }
func (f *fakeSimulation) BeginStep()          { f.calls = append(f.calls, "begin") }
func (f *fakeSimulation) EndStep(float32)     { f.calls = append(f.calls, "end") }

func (f *fakeSimulation) AddParticle(p Particle) error {
	f.calls = append(f.calls, "particle")
	f.particles = append(f.particles, p)
	return nil
}

func (f *fakeSimulation) AddShape(s Shape) (int, error) {
	f.calls = append(f.calls, "shape")
	f.shapes = append(f.shapes, s)
	return len(f.shapes) - 1, nil
}

func (f *fakeSimulation) UpdateShape(i int, s Shape) error {
	f.calls = append(f.calls, "update")
	f.shapes[i] = s
	return nil
}

func (f *fakeSimulation) Particles() []Particle { return f.particles }
func (f *fakeSimulation) ParticleCount() int    { return len(f.particles) }
func (f *fakeSimulation) Backend() Backend      { return f.backend }
func (f *fakeSimulation) Close() error          { f.closed = true; return nil }

func registerTemporary(t *testing.T, b Backend, f Factory) {
	t.Helper()
	require.NoError(t, RegisterBackend(b, f))
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, b)
		registryMu.Unlock()
	})
}

// =============================================================================
// Backend Tests
// =============================================================================

func TestBackend_String(t *testing.T) {
	tests := []struct {
		b    Backend
		want string
	}{
		{BackendCPU, "cpu"},
		{BackendGPU, "gpu"},
		{Backend(7), "Backend(7)"},
	}
	for _, tt := range tests {
		if got := tt.b.String(); got != tt.want {
			t.Errorf("Backend(%d).String() = %q, want %q", int(tt.b), got, tt.want)
		}
	}

	b, err := ParseBackend("gpu")
	require.NoError(t, err)
	assert.Equal(t, BackendGPU, b)
	_, err = ParseBackend("tpu")
	assert.Error(t, err)
}

// =============================================================================
// Registry Tests
// =============================================================================

func TestRegisterBackend_Rejects(t *testing.T) {
	assert.Error(t, RegisterBackend(Backend(42), nil))
	assert.Error(t, RegisterBackend(BackendCPU, func(Constants, Config) (Simulation, error) {
		return &fakeSimulation{}, nil
	}))
}

func TestNewBackend_Registered(t *testing.T) {
	custom := Backend(42)
	var gotCfg Config
	registerTemporary(t, custom, func(c Constants, cfg Config) (Simulation, error) {
		gotCfg = cfg
		return &fakeSimulation{backend: custom}, nil
	})

	assert.Contains(t, Backends(), custom)

	sim, err := NewBackend(testConstants(), WithBackend(custom), WithShapeCapacity(4), WithWorkers(3))
	require.NoError(t, err)
	assert.Equal(t, custom, sim.Backend())
	assert.Equal(t, 4, gotCfg.ShapeCapacity)
	assert.Equal(t, 3, gotCfg.Workers)
	assert.Equal(t, 1000, gotCfg.ParticleCapacity)
}

func TestNewBackend_Unavailable(t *testing.T) {
	_, err := NewBackend(testConstants(), WithBackend(Backend(77)))
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestNew_FallsBackToCPU(t *testing.T) {
	sim, err := New(testConstants(), WithBackend(Backend(77)))
	require.NoError(t, err)
	defer sim.Close()
	assert.Equal(t, BackendCPU, sim.Backend())
}

func TestNew_FactoryErrorFallsBack(t *testing.T) {
	failing := Backend(43)
	registerTemporary(t, failing, func(Constants, Config) (Simulation, error) {
		return nil, errors.New("no adapter")
	})

	_, err := NewBackend(testConstants(), WithBackend(failing))
	assert.ErrorContains(t, err, "no adapter")

	sim, err := New(testConstants(), WithBackend(failing))
	require.NoError(t, err)
	defer sim.Close()
	assert.Equal(t, BackendCPU, sim.Backend())
}

func TestNew_InvalidConstantsDoNotFallBack(t *testing.T) {
	c := testConstants()
	c.GridWidth = 4
	_, err := New(c, WithBackend(Backend(77)))
	assert.ErrorIs(t, err, ErrInvalidConstants)
}

// =============================================================================
// Options Tests
// =============================================================================

func TestOptions(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, BackendCPU, cfg.Backend)
	assert.Equal(t, 1000, cfg.ParticleCapacity)
	assert.Equal(t, 10, cfg.ShapeCapacity)
	assert.Nil(t, cfg.DeviceProvider)

	cfg = NewConfig(WithParticleCapacity(-1), WithShapeCapacity(0))
	assert.Equal(t, 1000, cfg.ParticleCapacity, "non-positive capacity keeps the default")
	assert.Equal(t, 10, cfg.ShapeCapacity)

	cfg = NewConfig(WithBackend(BackendGPU), WithParticleCapacity(64), WithDeviceProvider(nil))
	assert.Equal(t, BackendGPU, cfg.Backend)
	assert.Equal(t, 64, cfg.ParticleCapacity)
}
