package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/pbmpm"
)

const testScene = `
steps: 3
seed: 7
constants:
  gridWidth: 32
  gridHeight: 32
  gravityStrength: 2.5
blocks:
  - material: elastic
    min: {x: 12, y: 14}
    max: {x: 16, y: 18}
    count: 20
    mass: 1
shapes:
  - kind: box
    position: {x: 16, y: 8}
    halfSize: {x: 10, y: 1}
`

func writeScene(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

// =============================================================================
// Scene Parsing Tests
// =============================================================================

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(testScene))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Steps)
	assert.Equal(t, uint64(7), s.Seed)
	assert.Equal(t, float32(1.0/60), s.DeltaTime, "dt keeps its default")

	def := pbmpm.DefaultConstants()
	assert.Equal(t, 32, s.Constants.GridWidth)
	assert.Equal(t, float32(2.5), s.Constants.GravityStrength)
	assert.Equal(t, def.Iterations, s.Constants.Iterations, "omitted constants keep defaults")
	assert.Equal(t, def.FixedPointExponent, s.Constants.FixedPointExponent)

	require.Len(t, s.Blocks, 1)
	assert.Equal(t, pbmpm.Elastic, s.Blocks[0].Material)
	assert.Equal(t, pbmpm.V2(16, 18), s.Blocks[0].Max)
	assert.Equal(t, 20, s.ParticleCount())

	require.Len(t, s.Shapes, 1)
	assert.Equal(t, pbmpm.ShapeBox, s.Shapes[0].Kind)
	assert.Equal(t, pbmpm.V2(10, 1), s.Shapes[0].HalfSize)
}

func TestParseScene_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bad yaml", "steps: [1"},
		{"unknown material", "blocks: [{material: goo, min: {x: 1, y: 1}, max: {x: 2, y: 2}, count: 1, mass: 1}]"},
		{"unknown shape", "shapes: [{kind: triangle}]"},
		{"empty block", "blocks: [{material: sand, min: {x: 2, y: 2}, max: {x: 2, y: 3}, count: 1, mass: 1}]"},
		{"no mass", "blocks: [{material: sand, min: {x: 1, y: 1}, max: {x: 2, y: 2}, count: 1}]"},
		{"zero steps", "steps: 0"},
		{"small grid", "constants: {gridWidth: 2}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tt.text))
			assert.Error(t, err)
		})
	}
}

func TestLoadScene(t *testing.T) {
	s, err := LoadScene(writeScene(t, testScene))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Steps)

	_, err = LoadScene(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultScene_Valid(t *testing.T) {
	s := DefaultScene()
	require.NoError(t, s.Validate())
	assert.Equal(t, 500, s.ParticleCount())
}

// =============================================================================
// Spawn Tests
// =============================================================================

func TestSpawn_InsideBlocks(t *testing.T) {
	s := DefaultScene()
	s.Blocks = append(s.Blocks, Block{
		Material: pbmpm.Sand, Min: pbmpm.V2(4, 4), Max: pbmpm.V2(6, 10), Count: 50, Mass: 2,
	})

	ps := s.Spawn()
	require.Len(t, ps, 550)

	for i, p := range ps {
		b := s.Blocks[0]
		if i >= 500 {
			b = s.Blocks[1]
		}
		assert.Equal(t, b.Material, p.Material)
		assert.Equal(t, b.Mass, p.Mass)
		in := p.Position.X >= b.Min.X && p.Position.X <= b.Max.X &&
			p.Position.Y >= b.Min.Y && p.Position.Y <= b.Max.Y
		if !in {
			t.Fatalf("particle %d at %v outside block %v..%v", i, p.Position, b.Min, b.Max)
		}
	}
}

func TestSpawn_Seeded(t *testing.T) {
	a := DefaultScene()
	b := DefaultScene()
	assert.Equal(t, a.Spawn(), b.Spawn())

	b.Seed = 2
	assert.NotEqual(t, a.Spawn(), b.Spawn())
}
