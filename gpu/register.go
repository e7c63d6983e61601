package gpu

import "github.com/gogpu/pbmpm"

func init() {
	if err := pbmpm.RegisterBackend(pbmpm.BackendGPU, factory); err != nil {
		pbmpm.Logger().Warn("gpu: backend not registered", "err", err)
	}
}
