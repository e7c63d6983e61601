// Package solver implements the position-based MPM pipeline shared by every
// pbmpm backend.
//
// A physics step runs Constants.Iterations relaxation cycles followed by one
// integration pass:
//
//	for each iteration:
//	    Relax      (per particle)   nudge ΔD toward the material target
//	    Grid reset (per vertex)     clear all accumulators
//	    Scatter    (per particle)   P2G, scatter-add into the grid
//	    SolveVertex(per vertex)     momentum/mass, shape impulses, guardian
//	    Gather     (per particle)   G2P, new displacement and ΔD
//	Integrate      (per particle)   plastic projection, gravity, collisions
//
// The stage kernels work on a single element and a Grid interface. Step
// runs them sequentially; the gpu package dispatches the same kernels over
// work-groups with a FixedGrid, which accumulates through atomic integer
// adds.
//
// The package owns no storage. Collections is a bounded store the backends
// use to hold particles and shapes between steps.
package solver
