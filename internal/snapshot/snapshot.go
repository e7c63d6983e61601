// Package snapshot renders particle states to images for inspection.
//
// The grid is drawn with y pointing up. Colliders are filled by sampling
// their signed distance at each pixel, the guardian band is shaded, and
// each particle is a dot colored by its material.
package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/pbmpm/internal/geom"
	"github.com/gogpu/pbmpm/internal/solver"
)

// CellPixels is the number of pixels per grid cell before scaling.
const CellPixels = 4

// Colors used by Render.
var (
	Background = color.RGBA{R: 0x12, G: 0x14, B: 0x1a, A: 0xff}
	Guardian   = color.RGBA{R: 0x22, G: 0x25, B: 0x2e, A: 0xff}
	Collider   = color.RGBA{R: 0x6b, G: 0x6f, B: 0x7a, A: 0xff}
)

var palette = [...]color.RGBA{
	solver.Liquid:  {R: 0x3b, G: 0x8e, B: 0xea, A: 0xff},
	solver.Elastic: {R: 0xe8, G: 0x5d, B: 0x75, A: 0xff},
	solver.Viscous: {R: 0x9b, G: 0x6a, B: 0xd6, A: 0xff},
	solver.Sand:    {R: 0xe0, G: 0xb8, B: 0x4c, A: 0xff},
}

// MaterialColor returns the dot color of m.
func MaterialColor(m solver.Material) color.RGBA {
	if int(m) < len(palette) {
		return palette[m]
	}
	return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

// Render draws a width x height grid with its shapes and particles. The
// result is CellPixels*scale pixels per cell; scale < 1 is treated as 1.
func Render(width, height int, ps []solver.Particle, shapes []geom.Shape, scale int) *image.RGBA {
	w, h := width*CellPixels, height*CellPixels
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	lo := float32(solver.GuardianSize)
	hiX, hiY := float32(width-solver.GuardianSize), float32(height-solver.GuardianSize)
	for py := range h {
		for px := range w {
			p := pixelCenter(px, py, h)
			c := Background
			if p.X < lo || p.Y < lo || p.X > hiX || p.Y > hiY {
				c = Guardian
			}
			for _, s := range shapes {
				if geom.Collide(s, p).Collides {
					c = Collider
					break
				}
			}
			img.SetRGBA(px, py, c)
		}
	}

	for i := range ps {
		plot(img, ps[i].Position, MaterialColor(ps[i].Material))
	}

	if scale <= 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// pixelCenter maps a pixel to grid coordinates, flipping y.
func pixelCenter(px, py, h int) geom.Vec2 {
	return geom.V2(
		(float32(px)+0.5)/CellPixels,
		(float32(h-1-py)+0.5)/CellPixels,
	)
}

// plot draws a 2x2 dot centered on pos. Positions off the image, including
// non-finite ones, are skipped.
func plot(img *image.RGBA, pos geom.Vec2, c color.RGBA) {
	h := img.Rect.Dy()
	fx := pos.X * CellPixels
	fy := float32(h) - pos.Y*CellPixels
	if !(fx >= 0 && fy >= 0 && fx < float32(img.Rect.Dx()) && fy < float32(h)) {
		return
	}
	x, y := int(fx), int(fy)
	for dy := -1; dy <= 0; dy++ {
		for dx := -1; dx <= 0; dx++ {
			if (image.Point{X: x + dx, Y: y + dy}).In(img.Rect) {
				img.SetRGBA(x+dx, y+dy, c)
			}
		}
	}
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("snapshot: encode PNG: %w", err)
	}
	return nil
}

// Save writes img to path as PNG.
func Save(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("snapshot: create file: %w", err)
	}

	if err := Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}
