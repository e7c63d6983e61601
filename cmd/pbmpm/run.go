package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogpu/pbmpm"
	"github.com/gogpu/pbmpm/gpu"
	"github.com/gogpu/pbmpm/internal/snapshot"
)

// deviceEmulator selects the GPU backend's kernel emulator.
const deviceEmulator = "emulator"

func newRunCmd() *cobra.Command {
	var (
		flags   sceneFlags
		backend string
		pngPath string
		scale   int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scene and print a summary",
		Long: `Run steps a scene on one backend and prints where the particles ended up.

Backends are cpu, gpu and emulator. gpu falls back to the emulator when no
compute device can be opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := flags.load()
			if err != nil {
				return err
			}

			sim, err := openSimulation(backend, &scene, flags.workers)
			if err != nil {
				return err
			}
			defer sim.Close()

			start := time.Now()
			ps, err := simulate(cmd.Context(), sim, &scene)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), describe(sim), scene.Steps, time.Since(start), summarize(ps))

			if pngPath != "" {
				img := snapshot.Render(scene.Constants.GridWidth, scene.Constants.GridHeight, ps, scene.Shapes, scale)
				if err := snapshot.Save(pngPath, img); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "snapshot:  %s\n", pngPath)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&backend, "backend", "b", "cpu", "backend: cpu, gpu or emulator")
	cmd.Flags().StringVar(&pngPath, "png", "", "write the final state to this PNG file")
	cmd.Flags().IntVar(&scale, "scale", 2, "PNG pixels per snapshot pixel")
	return cmd
}

// openSimulation creates a simulation sized for the scene.
func openSimulation(backend string, scene *Scene, workers int) (pbmpm.Simulation, error) {
	opts := append(scene.Options(), pbmpm.WithWorkers(workers))
	if backend == deviceEmulator {
		return gpu.NewEmulated(scene.Constants, opts...)
	}
	b, err := pbmpm.ParseBackend(backend)
	if err != nil {
		return nil, err
	}
	return pbmpm.New(scene.Constants, append(opts, pbmpm.WithBackend(b))...)
}

// simulate populates sim with the scene, runs its steps and returns a copy
// of the final particles.
func simulate(ctx context.Context, sim pbmpm.Simulation, scene *Scene) ([]pbmpm.Particle, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var populateErr error
	e := pbmpm.NewEngine(sim)
	e.OnStart(func(e *pbmpm.Engine) {
		populateErr = scene.Populate(e)
	})

	for range scene.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.Step(scene.DeltaTime)
		if populateErr != nil {
			return nil, fmt.Errorf("populate scene: %w", populateErr)
		}
	}
	e.Sync()
	return slices.Clone(e.Particles()), nil
}

func describe(sim pbmpm.Simulation) string {
	if d, ok := sim.(interface{ Device() string }); ok {
		return fmt.Sprintf("%s (%s)", sim.Backend(), d.Device())
	}
	return sim.Backend().String()
}

// Summary is the aggregate state of a particle population.
type Summary struct {
	Count     int
	Centroid  pbmpm.Vec2
	Min, Max  pbmpm.Vec2
	NonFinite int
}

func summarize(ps []pbmpm.Particle) Summary {
	s := Summary{
		Min: pbmpm.V2(math.MaxFloat32, math.MaxFloat32),
		Max: pbmpm.V2(-math.MaxFloat32, -math.MaxFloat32),
	}
	var sum pbmpm.Vec2
	for i := range ps {
		p := ps[i].Position
		if !finite(p.X) || !finite(p.Y) {
			s.NonFinite++
			continue
		}
		s.Count++
		sum = sum.Add(p)
		s.Min = pbmpm.V2(min(s.Min.X, p.X), min(s.Min.Y, p.Y))
		s.Max = pbmpm.V2(max(s.Max.X, p.X), max(s.Max.Y, p.Y))
	}
	if s.Count == 0 {
		s.Min, s.Max = pbmpm.Vec2{}, pbmpm.Vec2{}
		return s
	}
	s.Centroid = sum.Mul(1 / float32(s.Count))
	return s
}

func finite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

func printSummary(w io.Writer, backend string, steps int, elapsed time.Duration, s Summary) {
	fmt.Fprintf(w, "backend:   %s\n", backend)
	fmt.Fprintf(w, "particles: %d\n", s.Count+s.NonFinite)
	fmt.Fprintf(w, "steps:     %d in %s\n", steps, elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "centroid:  (%.3f, %.3f)\n", s.Centroid.X, s.Centroid.Y)
	fmt.Fprintf(w, "bounds:    (%.3f, %.3f) - (%.3f, %.3f)\n", s.Min.X, s.Min.Y, s.Max.X, s.Max.Y)
	if s.NonFinite > 0 {
		fmt.Fprintf(w, "non-finite: %d\n", s.NonFinite)
	}
}
