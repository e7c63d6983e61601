package pbmpm

// Hook is a callback run by Engine during a step, after the previous step
// has completed and before the next one is scheduled.
type Hook func(e *Engine)

// Engine drives a Simulation at a host-chosen rate and runs host hooks
// between steps.
//
// Start hooks run once, at the next Step, and are then dropped. Step hooks
// run at every Step, after the start hooks. Hooks may register further
// hooks; start hooks registered from a hook run at the following Step.
//
// Engine is not safe for concurrent use.
type Engine struct {
	sim        Simulation
	startHooks []Hook
	stepHooks  []Hook
	steps      int
}

// NewEngine returns an engine driving sim. The engine does not take
// ownership of sim beyond Close.
func NewEngine(sim Simulation) *Engine {
	return &Engine{sim: sim}
}

// Simulation returns the driven simulation.
func (e *Engine) Simulation() Simulation { return e.sim }

// OnStart registers a hook that runs once at the next Step.
func (e *Engine) OnStart(h Hook) {
	if h != nil {
		e.startHooks = append(e.startHooks, h)
	}
}

// OnStep registers a hook that runs at every Step.
func (e *Engine) OnStep(h Hook) {
	if h != nil {
		e.stepHooks = append(e.stepHooks, h)
	}
}

// Step completes the previous step, runs the hooks and schedules the next
// step of dt seconds.
func (e *Engine) Step(dt float32) {
	e.sim.BeginStep()

	start := e.startHooks
	e.startHooks = nil
	for _, h := range start {
		h(e)
	}
	for _, h := range e.stepHooks {
		h(e)
	}

	e.sim.EndStep(dt)
	e.steps++
}

// Sync waits for the step in flight so that Particles reflects it.
func (e *Engine) Sync() {
	e.sim.BeginStep()
}

// Steps returns the number of steps scheduled so far.
func (e *Engine) Steps() int { return e.steps }

// SpawnParticle adds a particle at rest.
func (e *Engine) SpawnParticle(pos Vec2, material Material, mass float32) error {
	return e.sim.AddParticle(NewParticle(pos, material, mass))
}

// SpawnShape adds a shape and returns its slot.
func (e *Engine) SpawnShape(s Shape) (int, error) {
	return e.sim.AddShape(s)
}

// UpdateShape moves the shape in slot index.
func (e *Engine) UpdateShape(index int, s Shape) error {
	return e.sim.UpdateShape(index, s)
}

// Particles returns the particle view of the simulation. Call it from a
// hook or after Sync.
func (e *Engine) Particles() []Particle { return e.sim.Particles() }

// ParticleCount returns the number of particles.
func (e *Engine) ParticleCount() int { return e.sim.ParticleCount() }

// Close waits for outstanding work and closes the simulation.
func (e *Engine) Close() error { return e.sim.Close() }
