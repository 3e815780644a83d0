package cpu

import (
	"fmt"

	"github.com/destin-ml/destin/internal/parallel"
	"github.com/destin-ml/destin/internal/tensor"
)

// FilterActs convolves in the c01b layout, keeping the batch dimension
// innermost so every filter tap is applied to a contiguous run of images.
//
// Input:   [C, H, W, N]
// Filters: [C, K, K, F]
// Output:  [F, H_out, W_out, N] with H_out = H + 2*padding - K + 1
func (cpu *CPUBackend) FilterActs(input, filters *tensor.RawTensor, padding int) *tensor.RawTensor {
	inShape := input.Shape()
	fShape := filters.Shape()

	if len(inShape) != 4 || len(fShape) != 4 {
		panic(fmt.Sprintf("filteracts: expected 4D input and filters, got %v and %v", inShape, fShape))
	}
	if inShape[0] != fShape[0] {
		panic(fmt.Sprintf("filteracts: input channels %d != filter channels %d", inShape[0], fShape[0]))
	}
	if fShape[1] != fShape[2] {
		panic(fmt.Sprintf("filteracts: filters must be square, got %dx%d", fShape[1], fShape[2]))
	}
	if padding < 0 {
		panic(fmt.Sprintf("filteracts: invalid padding %d", padding))
	}
	if input.DType() != filters.DType() {
		panic(fmt.Sprintf("filteracts: dtype mismatch %s vs %s", input.DType(), filters.DType()))
	}

	C, H, W, N := inShape[0], inShape[1], inShape[2], inShape[3]
	K, F := fShape[1], fShape[3]
	HOut := H + 2*padding - K + 1
	WOut := W + 2*padding - K + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("filteracts: invalid output dimensions %dx%d", HOut, WOut))
	}

	output, err := tensor.NewRaw(tensor.Shape{F, HOut, WOut, N}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("filteracts: %v", err))
	}

	g := filterActsGeometry{C: C, H: H, W: W, N: N, K: K, F: F, HOut: HOut, WOut: WOut, pad: padding}
	switch input.DType() {
	case tensor.Float32:
		filterActs(output.AsFloat32(), input.AsFloat32(), filters.AsFloat32(), g, cpu.parallel)
	case tensor.Float64:
		filterActs(output.AsFloat64(), input.AsFloat64(), filters.AsFloat64(), g, cpu.parallel)
	default:
		panic(fmt.Sprintf("filteracts: unsupported dtype %s", input.DType()))
	}

	return output
}

type filterActsGeometry struct {
	C, H, W, N int
	K, F       int
	HOut, WOut int
	pad        int
}

func filterActs[T float](out, in, filters []T, g filterActsGeometry, cfg parallel.Config) {
	parallel.ForGrid(g.F, g.HOut, func(f, oy int) {
		for ox := 0; ox < g.WOut; ox++ {
			acc := out[((f*g.HOut+oy)*g.WOut+ox)*g.N:][:g.N]

			for c := 0; c < g.C; c++ {
				for ky := 0; ky < g.K; ky++ {
					iy := oy + ky - g.pad
					if iy < 0 || iy >= g.H {
						continue
					}
					for kx := 0; kx < g.K; kx++ {
						ix := ox + kx - g.pad
						if ix < 0 || ix >= g.W {
							continue
						}
						w := filters[((c*g.K+ky)*g.K+kx)*g.F+f]
						images := in[((c*g.H+iy)*g.W+ix)*g.N:][:g.N]
						for n, v := range images {
							acc[n] += w * v
						}
					}
				}
			}
		}
	}, cfg)
}
