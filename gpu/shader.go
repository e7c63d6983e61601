package gpu

import (
	_ "embed"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/naga"
)

// shaderSource is the WGSL module holding one entry point per Kernel.
//
//go:embed shaders/pbmpm.wgsl
var shaderSource string

// EntryPoint describes a compute entry point of the kernel module.
type EntryPoint struct {
	Name      string
	Workgroup [3]uint32
}

// EntryPoints parses and lowers the kernel module and returns its entry
// points sorted by name.
func EntryPoints() ([]EntryPoint, error) {
	ast, err := naga.Parse(shaderSource)
	if err != nil {
		return nil, fmt.Errorf("gpu: parse kernels: %w", err)
	}
	module, err := naga.LowerWithSource(ast, shaderSource)
	if err != nil {
		return nil, fmt.Errorf("gpu: lower kernels: %w", err)
	}

	out := make([]EntryPoint, 0, len(module.EntryPoints))
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		out = append(out, EntryPoint{Name: ep.Name, Workgroup: ep.Workgroup})
	}
	slices.SortFunc(out, func(a, b EntryPoint) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// CompileKernels validates the kernel module and returns its SPIR-V.
func CompileKernels() ([]byte, error) {
	spirv, err := naga.Compile(shaderSource)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile kernels: %w", err)
	}
	return spirv, nil
}
