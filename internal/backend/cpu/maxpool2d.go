package cpu

import (
	"fmt"

	"github.com/destin-ml/destin/internal/parallel"
	"github.com/destin-ml/destin/internal/tensor"
)

// MaxPool2D performs 2D max pooling.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Where:
//
//	out_height = (height - window[0]) / stride[0] + 1
//	out_width  = (width - window[1]) / stride[1] + 1
//
// Trailing rows and columns that do not fill a whole window are dropped.
//
// Example (2x2 window, stride 2):
//
//	Input: [[1,2,3,4],    Output: [[6,8],
//	        [5,6,7,8],             [14,16]]
//	        [9,10,11,12],
//	        [13,14,15,16]]
func (cpu *CPUBackend) MaxPool2D(input *tensor.RawTensor, window, stride [2]int) *tensor.RawTensor {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}

	N, C, H, W := inputShape[0], inputShape[1], inputShape[2], inputShape[3]

	if window[0] <= 0 || window[1] <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid window %v", window))
	}
	if stride[0] <= 0 || stride[1] <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %v", stride))
	}
	if window[0] > H || window[1] > W {
		panic(fmt.Sprintf("maxpool2d: window %v too large for input %dx%d", window, H, W))
	}

	HOut := (H-window[0])/stride[0] + 1
	WOut := (W-window[1])/stride[1] + 1

	output, err := tensor.NewRaw(tensor.Shape{N, C, HOut, WOut}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("maxpool2d: failed to create output: %v", err))
	}

	g := poolGeometry{planes: N * C, H: H, W: W, HOut: HOut, WOut: WOut, window: window, stride: stride}
	switch input.DType() {
	case tensor.Float32:
		maxpool2d(output.AsFloat32(), input.AsFloat32(), g, cpu.parallel)
	case tensor.Float64:
		maxpool2d(output.AsFloat64(), input.AsFloat64(), g, cpu.parallel)
	default:
		panic(fmt.Sprintf("maxpool2d: unsupported dtype %v", input.DType()))
	}

	return output
}

type poolGeometry struct {
	planes     int
	H, W       int
	HOut, WOut int
	window     [2]int
	stride     [2]int
}

func maxpool2d[T float](out, in []T, g poolGeometry, cfg parallel.Config) {
	parallel.For(g.planes, func(p int) {
		// Pre-slice the channel plane.
		plane := in[p*g.H*g.W : (p+1)*g.H*g.W]
		dst := out[p*g.HOut*g.WOut : (p+1)*g.HOut*g.WOut]

		for outH := 0; outH < g.HOut; outH++ {
			hStart := outH * g.stride[0]
			for outW := 0; outW < g.WOut; outW++ {
				wStart := outW * g.stride[1]

				maxVal := plane[hStart*g.W+wStart]
				for kh := 0; kh < g.window[0]; kh++ {
					row := plane[(hStart+kh)*g.W : (hStart+kh+1)*g.W]
					for kw := 0; kw < g.window[1]; kw++ {
						if v := row[wStart+kw]; v > maxVal {
							maxVal = v
						}
					}
				}

				dst[outH*g.WOut+outW] = maxVal
			}
		}
	}, cfg)
}
