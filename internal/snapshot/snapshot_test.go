package snapshot

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/pbmpm/internal/geom"
	"github.com/gogpu/pbmpm/internal/solver"
)

func TestRender(t *testing.T) {
	ps := []solver.Particle{
		solver.NewParticle(geom.V2(8, 8), solver.Liquid, 1),
		solver.NewParticle(geom.V2(float32(math.NaN()), 2), solver.Sand, 1),
		solver.NewParticle(geom.V2(-5, 40), solver.Sand, 1),
	}
	shapes := []geom.Shape{solver.NewCircle(geom.V2(4, 4), 1.5)}

	img := Render(16, 16, ps, shapes, 1)
	require.Equal(t, 64, img.Rect.Dx())
	require.Equal(t, 64, img.Rect.Dy())

	assert.Equal(t, MaterialColor(solver.Liquid), img.RGBAAt(32, 32), "particle dot")
	assert.Equal(t, MaterialColor(solver.Liquid), img.RGBAAt(31, 31), "particle dot")
	assert.Equal(t, Collider, img.RGBAAt(16, 47), "circle at (4, 4), y flipped")
	assert.Equal(t, Guardian, img.RGBAAt(0, 0))
	assert.Equal(t, Background, img.RGBAAt(40, 15))
}

func TestRender_Scaled(t *testing.T) {
	ps := []solver.Particle{solver.NewParticle(geom.V2(8, 8), solver.Elastic, 1)}

	img := Render(16, 16, ps, nil, 2)
	require.Equal(t, 128, img.Rect.Dx())
	assert.Equal(t, MaterialColor(solver.Elastic), img.RGBAAt(64, 64))
}

func TestMaterialColor(t *testing.T) {
	seen := map[[4]uint8]bool{}
	for m := solver.Liquid; m <= solver.Sand; m++ {
		c := MaterialColor(m)
		key := [4]uint8{c.R, c.G, c.B, c.A}
		assert.False(t, seen[key], "%s shares a color", m)
		seen[key] = true
	}
	assert.Equal(t, uint8(0xff), MaterialColor(solver.Material(42)).R)
}

func TestSave(t *testing.T) {
	img := Render(8, 8, nil, nil, 1)
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, Save(path, img))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	assert.Error(t, Save(filepath.Join(t.TempDir(), "missing", "frame.png"), img))
}
