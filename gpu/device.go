package gpu

import (
	"errors"

	"github.com/gogpu/pbmpm"
)

// ErrNoDevice is returned when no compute device could be opened.
var ErrNoDevice = errors.New("gpu: no compute device available")

// device owns the device-resident buffers and executes kernels on them.
//
// Writes and reads are only issued while the device is idle; submit
// returns as soon as the work is queued and wait blocks until it is done.
type device interface {
	name() string

	writeParams(data []byte) error
	writeParticles(offset uint64, data []byte) error
	writeShapes(data []byte) error

	submit(passes []pass, particles int) error
	wait() error
	readParticles(dst []byte) error

	destroy()
}

// sizes are the capacities device buffers are allocated for.
type sizes struct {
	particles int
	shapes    int
	width     int
	height    int
}

func (s sizes) vertices() int { return s.width * s.height }

func sizesFor(c pbmpm.Constants, cfg pbmpm.Config) sizes {
	return sizes{
		particles: cfg.ParticleCapacity,
		shapes:    cfg.ShapeCapacity,
		width:     c.GridWidth,
		height:    c.GridHeight,
	}
}

// openDevice returns a hardware device when one opens and the in-process
// emulator otherwise.
func openDevice(cfg pbmpm.Config, sz sizes) device {
	dev, err := openHardware(cfg, sz)
	if err == nil {
		return dev
	}
	pbmpm.Logger().Info("gpu: using kernel emulator", "reason", err)
	return newEmulator(cfg.Workers, sz)
}
