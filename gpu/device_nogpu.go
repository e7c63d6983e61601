//go:build nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/pbmpm"
)

// openHardware always fails in nogpu builds; kernels run on the emulator.
func openHardware(pbmpm.Config, sizes) (device, error) {
	return nil, fmt.Errorf("%w: built with nogpu", ErrNoDevice)
}
