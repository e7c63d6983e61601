package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/pbmpm"
)

func newCompareCmd() *cobra.Command {
	var (
		flags     sceneFlags
		device    string
		tolerance float32
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run a scene on the CPU and GPU backends and compare positions",
		Long: `Compare runs the same scene on the CPU backend and on a GPU device
concurrently and reports how far the final particle positions diverge.

--device gpu opens a hardware device (falling back to the emulator);
--device emulator always uses the kernel emulator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scene, err := flags.load()
			if err != nil {
				return err
			}
			if device != "gpu" && device != deviceEmulator {
				return fmt.Errorf("unknown device %q (want gpu or emulator)", device)
			}

			start := time.Now()
			res, err := compareBackends(cmd.Context(), &scene, device, flags.workers)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scene:     %d particles, %d steps in %s\n",
				res.Count, scene.Steps, time.Since(start).Round(time.Millisecond))
			fmt.Fprintf(out, "reference: %s\n", res.Reference)
			fmt.Fprintf(out, "candidate: %s\n", res.Candidate)
			fmt.Fprintf(out, "max dev:   %.6f (particle %d)\n", res.MaxDeviation, res.Worst)
			fmt.Fprintf(out, "mean dev:  %.6f\n", res.MeanDeviation)

			if tolerance > 0 && !(res.MaxDeviation <= tolerance) {
				return fmt.Errorf("max deviation %.6f exceeds tolerance %.6f", res.MaxDeviation, tolerance)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&device, "device", "d", "gpu", "GPU device: gpu or emulator")
	cmd.Flags().Float32Var(&tolerance, "tolerance", 0, "fail if the max deviation exceeds this (0 = report only)")
	return cmd
}

// Comparison is the per-particle position difference of two runs.
type Comparison struct {
	Reference     string
	Candidate     string
	Count         int
	MaxDeviation  float32
	MeanDeviation float32
	Worst         int
}

// compareBackends runs scene on the CPU backend and on device concurrently.
func compareBackends(ctx context.Context, scene *Scene, device string, workers int) (Comparison, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		res      Comparison
		ref, got []pbmpm.Particle
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sim, err := openSimulation(pbmpm.BackendCPU.String(), scene, workers)
		if err != nil {
			return fmt.Errorf("cpu: %w", err)
		}
		defer sim.Close()
		res.Reference = describe(sim)
		ref, err = simulate(gctx, sim, scene)
		return err
	})
	g.Go(func() error {
		sim, err := openSimulation(device, scene, workers)
		if err != nil {
			return fmt.Errorf("%s: %w", device, err)
		}
		defer sim.Close()
		res.Candidate = describe(sim)
		got, err = simulate(gctx, sim, scene)
		return err
	})

	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}
	if len(ref) != len(got) {
		return Comparison{}, fmt.Errorf("particle counts differ: cpu %d, %s %d", len(ref), device, len(got))
	}

	res.Count = len(ref)
	res.Worst = -1
	var sum float64
	for i := range ref {
		d := ref[i].Position.Sub(got[i].Position).Length()
		if math.IsNaN(float64(d)) {
			d = float32(math.Inf(1))
		}
		sum += float64(d)
		if res.Worst < 0 || d > res.MaxDeviation {
			res.MaxDeviation = d
			res.Worst = i
		}
	}
	if res.Count > 0 {
		res.MeanDeviation = float32(sum / float64(res.Count))
	}
	return res, nil
}
