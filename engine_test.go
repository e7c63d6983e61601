package pbmpm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_HookOrder(t *testing.T) {
	sim := &fakeSimulation{}
	e := NewEngine(sim)

	var starts, steps int
	e.OnStart(func(e *Engine) {
		starts++
		_ = e.SpawnParticle(V2(8, 8), Liquid, 1)
	})
	e.OnStep(func(*Engine) { steps++ })
	e.OnStart(nil)

	e.Step(0.1)
	e.Step(0.1)
	e.Step(0.1)

	assert.Equal(t, 1, starts, "start hooks run once")
	assert.Equal(t, 3, steps, "step hooks run every step")
	assert.Equal(t, 3, e.Steps())
	assert.Equal(t, []string{
		"begin", "particle", "end",
		"begin", "end",
		"begin", "end",
	}, sim.calls)
}

func TestEngine_StartHookRegistersStepHook(t *testing.T) {
	sim := &fakeSimulation{}
	e := NewEngine(sim)

	// A spawner adds a shape once and then keeps its pose current.
	var slot int
	e.OnStart(func(e *Engine) {
		var err error
		slot, err = e.SpawnShape(NewCircle(V2(8, 8), 1))
		require.NoError(t, err)
		e.OnStep(func(e *Engine) {
			_ = e.UpdateShape(slot, NewCircle(V2(8, 8+float32(e.Steps())), 1))
		})
	})

	e.Step(0.1)
	e.Step(0.1)

	assert.Equal(t, []string{"begin", "shape", "update", "end", "begin", "update", "end"}, sim.calls)
	assert.Equal(t, V2(8, 9), sim.shapes[slot].Position)
}

func TestEngine_WithCPU(t *testing.T) {
	sim, err := New(testConstants())
	require.NoError(t, err)
	e := NewEngine(sim)
	defer e.Close()

	e.OnStart(func(e *Engine) {
		for i := range 4 {
			require.NoError(t, e.SpawnParticle(V2(7+float32(i)*0.5, 8), Viscous, 1))
		}
	})
	for range 5 {
		e.Step(1.0 / 60)
	}
	e.Sync()

	assert.Equal(t, 4, e.ParticleCount())
	assert.Len(t, e.Particles(), 4)
	assert.Same(t, sim, e.Simulation())
}
