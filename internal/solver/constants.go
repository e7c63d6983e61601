package solver

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/pbmpm/internal/geom"
)

// GuardianSize is the thickness in cells of the boundary region particles
// may not enter. The grid solve uses GuardianSize+1.
const GuardianSize = 3

// ErrInvalidConstants is wrapped by every error Validate returns.
var ErrInvalidConstants = errors.New("pbmpm: invalid constants")

// Constants holds the tunable parameters of a simulation.
//
// Grid dimensions are fixed for the lifetime of a solver instance; backends
// size their buffers once from the values given at construction.
type Constants struct {
	// Iterations is the number of relaxation cycles per step.
	Iterations int `yaml:"iterations"`

	LiquidViscosity   float32 `yaml:"liquidViscosity"`
	LiquidRelaxation  float32 `yaml:"liquidRelaxation"`
	ElasticityRatio   float32 `yaml:"elasticityRatio"`
	ElasticRelaxation float32 `yaml:"elasticRelaxation"`

	GridWidth  int `yaml:"gridWidth"`
	GridHeight int `yaml:"gridHeight"`

	// UseGridVolumeForLiquid enables the volume channel and the density
	// correction in Gather.
	UseGridVolumeForLiquid bool `yaml:"useGridVolumeForLiquid"`

	// FrictionAngle is the sand friction angle in degrees.
	FrictionAngle float32 `yaml:"frictionAngle"`

	// Plasticity controls the viscous yield bound exp(1-Plasticity).
	Plasticity float32 `yaml:"plasticity"`

	GravityStrength float32 `yaml:"gravityStrength"`

	// FixedPointExponent selects the multiplier 10^FixedPointExponent used
	// by grids that accumulate in fixed point.
	FixedPointExponent int `yaml:"fixedPointExponent"`
}

// DefaultConstants returns a stable parameter set for a 64x64 grid.
func DefaultConstants() Constants {
	return Constants{
		Iterations:             5,
		LiquidViscosity:        0.01,
		LiquidRelaxation:       1.5,
		ElasticityRatio:        1,
		ElasticRelaxation:      1.5,
		GridWidth:              64,
		GridHeight:             64,
		UseGridVolumeForLiquid: true,
		FrictionAngle:          30,
		Plasticity:             0,
		GravityStrength:        2.5,
		FixedPointExponent:     6,
	}
}

// MinGridSize is the smallest grid dimension that leaves at least one
// active vertex inside the grid-stage guardian on each axis.
const MinGridSize = 2*(GuardianSize+1) + 1

// Validate reports the first invalid parameter.
func (c *Constants) Validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations %d < 1", ErrInvalidConstants, c.Iterations)
	}
	if c.GridWidth < MinGridSize || c.GridHeight < MinGridSize {
		return fmt.Errorf("%w: grid %dx%d smaller than %dx%d",
			ErrInvalidConstants, c.GridWidth, c.GridHeight, MinGridSize, MinGridSize)
	}
	if c.FixedPointExponent < 0 || c.FixedPointExponent > geom.MaxFixedExponent {
		return fmt.Errorf("%w: fixed-point exponent %d outside [0, %d]",
			ErrInvalidConstants, c.FixedPointExponent, geom.MaxFixedExponent)
	}

	coefficients := []struct {
		name  string
		value float32
	}{
		{"liquidViscosity", c.LiquidViscosity},
		{"liquidRelaxation", c.LiquidRelaxation},
		{"elasticityRatio", c.ElasticityRatio},
		{"elasticRelaxation", c.ElasticRelaxation},
		{"frictionAngle", c.FrictionAngle},
		{"plasticity", c.Plasticity},
		{"gravityStrength", c.GravityStrength},
	}
	for _, coef := range coefficients {
		if math32.IsNaN(coef.value) || math32.IsInf(coef.value, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidConstants, coef.name)
		}
	}
	return nil
}

// FixedMultiplier returns the scale used by fixed-point grids.
func (c *Constants) FixedMultiplier() float32 {
	return geom.FixedMultiplier(c.FixedPointExponent)
}
