package solver

import (
	"sync/atomic"

	"github.com/gogpu/pbmpm/internal/geom"
)

// Channel selects one of the four accumulators of a grid vertex.
type Channel int

const (
	// ChannelMomentumX holds x momentum during scatter and x displacement
	// after the grid solve.
	ChannelMomentumX Channel = iota

	// ChannelMomentumY holds y momentum, then y displacement.
	ChannelMomentumY

	// ChannelMass holds the accumulated weighted mass.
	ChannelMass

	// ChannelVolume holds the accumulated weighted volume. It is only
	// written when UseGridVolumeForLiquid is set.
	ChannelVolume

	// Channels is the number of scalars per vertex.
	Channels = 4
)

// Grid is the transient lattice that mediates particle interaction.
//
// Vertex (x, y) has index y*width + x. Add must be safe for concurrent use
// when the grid is shared by parallel scatter workers; Load and Store are
// only called by the owner of a vertex.
type Grid interface {
	// Dims returns the grid width and height in vertices.
	Dims() (width, height int)

	// Add accumulates value into a channel of vertex v.
	Add(v int, ch Channel, value float32)

	// Load returns a channel of vertex v.
	Load(v int, ch Channel) float32

	// Store overwrites a channel of vertex v.
	Store(v int, ch Channel, value float32)

	// ClearVertex zeroes all channels of vertex v.
	ClearVertex(v int)

	// Reset zeroes the whole grid.
	Reset()
}

// FloatGrid is a float32 grid for single-worker pipelines.
type FloatGrid struct {
	width, height int
	data          []float32
}

// NewFloatGrid allocates a zeroed grid.
func NewFloatGrid(width, height int) *FloatGrid {
	return &FloatGrid{
		width:  width,
		height: height,
		data:   make([]float32, width*height*Channels),
	}
}

// Dims implements Grid.
func (g *FloatGrid) Dims() (int, int) { return g.width, g.height }

// Add implements Grid. It is not safe for concurrent use.
func (g *FloatGrid) Add(v int, ch Channel, value float32) {
	g.data[v*Channels+int(ch)] += value
}

// Load implements Grid.
func (g *FloatGrid) Load(v int, ch Channel) float32 {
	return g.data[v*Channels+int(ch)]
}

// Store implements Grid.
func (g *FloatGrid) Store(v int, ch Channel, value float32) {
	g.data[v*Channels+int(ch)] = value
}

// ClearVertex implements Grid.
func (g *FloatGrid) ClearVertex(v int) {
	clear(g.data[v*Channels : (v+1)*Channels])
}

// Reset implements Grid.
func (g *FloatGrid) Reset() {
	clear(g.data)
}

// FixedGrid stores every channel as a fixed-point int32 and accumulates
// with atomic adds, so many workers may scatter into it at once.
//
// Each contribution is quantised on its own before it is added. Sums stay
// exact while the running total of a channel remains within
// ±geom.MaxFixedMagnitude(exponent); beyond that the int32 wraps.
type FixedGrid struct {
	width, height int
	multiplier    float32
	data          []atomic.Int32
}

// NewFixedGrid allocates a zeroed grid with multiplier 10^exponent.
func NewFixedGrid(width, height, exponent int) *FixedGrid {
	return &FixedGrid{
		width:      width,
		height:     height,
		multiplier: geom.FixedMultiplier(exponent),
		data:       make([]atomic.Int32, width*height*Channels),
	}
}

// SetExponent changes the fixed-point scale. Call it only between steps.
func (g *FixedGrid) SetExponent(exponent int) {
	g.multiplier = geom.FixedMultiplier(exponent)
}

// Multiplier returns the current fixed-point scale.
func (g *FixedGrid) Multiplier() float32 { return g.multiplier }

// Dims implements Grid.
func (g *FixedGrid) Dims() (int, int) { return g.width, g.height }

// Add implements Grid. It is safe for concurrent use.
func (g *FixedGrid) Add(v int, ch Channel, value float32) {
	g.data[v*Channels+int(ch)].Add(geom.EncodeFixed(value, g.multiplier))
}

// Load implements Grid.
func (g *FixedGrid) Load(v int, ch Channel) float32 {
	return geom.DecodeFixed(g.data[v*Channels+int(ch)].Load(), g.multiplier)
}

// LoadRaw returns the quantised value of a channel.
func (g *FixedGrid) LoadRaw(v int, ch Channel) int32 {
	return g.data[v*Channels+int(ch)].Load()
}

// Store implements Grid.
func (g *FixedGrid) Store(v int, ch Channel, value float32) {
	g.data[v*Channels+int(ch)].Store(geom.EncodeFixed(value, g.multiplier))
}

// ClearVertex implements Grid.
func (g *FixedGrid) ClearVertex(v int) {
	for i := v * Channels; i < (v+1)*Channels; i++ {
		g.data[i].Store(0)
	}
}

// Reset implements Grid.
func (g *FixedGrid) Reset() {
	for i := range g.data {
		g.data[i].Store(0)
	}
}
