package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/pbmpm"
)

// Scene describes a simulation run: solver constants, the colliders and
// the blocks of particles spawned before the first step.
type Scene struct {
	Constants pbmpm.Constants `yaml:"constants"`
	Steps     int             `yaml:"steps"`
	DeltaTime float32         `yaml:"dt"`
	Seed      uint64          `yaml:"seed"`
	Blocks    []Block         `yaml:"blocks"`
	Shapes    []pbmpm.Shape   `yaml:"shapes"`
}

// Block is an axis-aligned box filled with randomly placed particles.
type Block struct {
	Material pbmpm.Material `yaml:"material"`
	Min      pbmpm.Vec2     `yaml:"min"`
	Max      pbmpm.Vec2     `yaml:"max"`
	Count    int            `yaml:"count"`
	Mass     float32        `yaml:"mass"`
}

// DefaultScene drops a block of liquid onto a floor.
func DefaultScene() Scene {
	c := pbmpm.DefaultConstants()
	return Scene{
		Constants: c,
		Steps:     120,
		DeltaTime: 1.0 / 60,
		Seed:      1,
		Blocks: []Block{{
			Material: pbmpm.Liquid,
			Min:      pbmpm.V2(24, 30),
			Max:      pbmpm.V2(40, 46),
			Count:    500,
			Mass:     1,
		}},
		Shapes: []pbmpm.Shape{
			pbmpm.NewBox(pbmpm.V2(32, 10), pbmpm.V2(24, 2), 0),
		},
	}
}

// LoadScene reads a YAML scene. Omitted constants and run settings keep
// their defaults; blocks and shapes are only those listed in the file.
func LoadScene(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(data)
}

// ParseScene decodes a YAML scene.
func ParseScene(data []byte) (Scene, error) {
	def := DefaultScene()
	s := Scene{
		Constants: def.Constants,
		Steps:     def.Steps,
		DeltaTime: def.DeltaTime,
		Seed:      def.Seed,
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scene{}, fmt.Errorf("parse scene: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scene{}, err
	}
	return s, nil
}

// Validate checks the run settings, the blocks and the constants.
func (s *Scene) Validate() error {
	var errs []error
	if s.Steps <= 0 {
		errs = append(errs, fmt.Errorf("steps must be positive, got %d", s.Steps))
	}
	if !(s.DeltaTime > 0) {
		errs = append(errs, fmt.Errorf("dt must be positive, got %g", s.DeltaTime))
	}
	for i, b := range s.Blocks {
		if b.Count <= 0 {
			errs = append(errs, fmt.Errorf("block %d: count must be positive", i))
		}
		if b.Max.X <= b.Min.X || b.Max.Y <= b.Min.Y {
			errs = append(errs, fmt.Errorf("block %d: empty extent %v..%v", i, b.Min, b.Max))
		}
		if !(b.Mass > 0) {
			errs = append(errs, fmt.Errorf("block %d: mass must be positive", i))
		}
	}
	if err := s.Constants.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid scene: %w", err)
	}
	return nil
}

// ParticleCount returns the number of particles the blocks spawn.
func (s *Scene) ParticleCount() int {
	n := 0
	for _, b := range s.Blocks {
		n += b.Count
	}
	return n
}

// Options returns the simulation options that size the collections for
// the scene.
func (s *Scene) Options() []pbmpm.Option {
	return []pbmpm.Option{
		pbmpm.WithParticleCapacity(s.ParticleCount()),
		pbmpm.WithShapeCapacity(len(s.Shapes)),
	}
}

// Spawn returns the particles of all blocks. The same seed always yields
// the same particles.
func (s *Scene) Spawn() []pbmpm.Particle {
	r := rand.New(rand.NewPCG(s.Seed, s.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // reproducible placement
	out := make([]pbmpm.Particle, 0, s.ParticleCount())
	for _, b := range s.Blocks {
		size := b.Max.Sub(b.Min)
		for range b.Count {
			pos := pbmpm.V2(b.Min.X+r.Float32()*size.X, b.Min.Y+r.Float32()*size.Y)
			out = append(out, pbmpm.NewParticle(pos, b.Material, b.Mass))
		}
	}
	return out
}

// Populate adds the scene's shapes and particles to e. It is meant to run
// as a start hook, between BeginStep and EndStep.
func (s *Scene) Populate(e *pbmpm.Engine) error {
	for i, sh := range s.Shapes {
		if _, err := e.SpawnShape(sh); err != nil {
			return fmt.Errorf("shape %d: %w", i, err)
		}
	}
	for _, p := range s.Spawn() {
		if err := e.Simulation().AddParticle(p); err != nil {
			return err
		}
	}
	return nil
}
