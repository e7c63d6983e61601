package solver

// Step advances particles by one physics step on a single goroutine.
//
// The grid dimensions come from g; c.GridWidth and c.GridHeight must match
// them. Shapes are read only.
func Step(particles []Particle, g Grid, shapes []Shape, c *Constants, dt float32) {
	for range c.Iterations {
		for i := range particles {
			Relax(&particles[i], c)
		}

		g.Reset()

		for i := range particles {
			Scatter(&particles[i], g, c)
		}

		SolveGrid(g, shapes, c)

		for i := range particles {
			Gather(&particles[i], g, c)
		}
	}

	for i := range particles {
		Integrate(&particles[i], shapes, c, dt)
	}
}
