package cpu

import (
	"fmt"

	"github.com/destin-ml/destin/internal/parallel"
	"github.com/destin-ml/destin/internal/tensor"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
)

// Conv2D performs 2D cross-correlation using the im2col algorithm.
//
// Input shape:  [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Output shape: [batch, out_channels, out_h, out_w]
//
// Where:
//
//	out_h = (height + 2*padding[0] - kernel_h) / stride[0] + 1
//	out_w = (width + 2*padding[1] - kernel_w) / stride[1] + 1
//
// "valid" convolution is padding {0, 0}; "full" convolution is padding
// {kernel_h-1, kernel_w-1}.
//
// Algorithm: Im2col
//  1. Transform input patches into rows of a column matrix
//  2. Multiply the [C_out, C_in*K_h*K_w] kernel matrix by its transpose (BLAS GEMM)
//  3. Rearrange [C_out, N*H_out*W_out] into [N, C_out, H_out, W_out]
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding [2]int) *tensor.RawTensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}
	if input.DType() != kernel.DType() {
		panic(fmt.Sprintf("conv2d: dtype mismatch %s vs %s", input.DType(), kernel.DType()))
	}
	if stride[0] <= 0 || stride[1] <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %v", stride))
	}
	if padding[0] < 0 || padding[1] < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %v", padding))
	}

	g := convGeometry{
		N: inputShape[0], C: inputShape[1], H: inputShape[2], W: inputShape[3],
		F: kernelShape[0], KH: kernelShape[2], KW: kernelShape[3],
		stride: stride, padding: padding,
	}

	if g.C != kernelShape[1] {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", g.C, kernelShape[1]))
	}

	g.HOut = (g.H+2*padding[0]-g.KH)/stride[0] + 1
	g.WOut = (g.W+2*padding[1]-g.KW)/stride[1] + 1
	if g.HOut <= 0 || g.WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding)", g.HOut, g.WOut))
	}

	output, err := tensor.NewRaw(tensor.Shape{g.N, g.F, g.HOut, g.WOut}, input.DType(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("conv2d: failed to create output tensor: %v", err))
	}

	switch input.DType() {
	case tensor.Float32:
		conv2d(output.AsFloat32(), input.AsFloat32(), kernel.AsFloat32(), g, gemm32, cpu.parallel)
	case tensor.Float64:
		conv2d(output.AsFloat64(), input.AsFloat64(), kernel.AsFloat64(), g, gemm64, cpu.parallel)
	default:
		panic(fmt.Sprintf("conv2d: unsupported dtype %s", input.DType()))
	}

	return output
}

// convGeometry holds the dimensions of one convolution call.
type convGeometry struct {
	N, C, H, W int
	F, KH, KW  int
	HOut, WOut int
	stride     [2]int
	padding    [2]int
}

// gemmNT computes c = a @ bᵀ for row-major a [m, k], b [n, k], c [m, n].
type gemmNT[T float] func(m, n, k int, a, b, c []T)

func gemm32(m, n, k int, a, b, c []float32) {
	blas32.Gemm(blas.NoTrans, blas.Trans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas32.General{Rows: n, Cols: k, Stride: k, Data: b},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c})
}

func gemm64(m, n, k int, a, b, c []float64) {
	blas64.Gemm(blas.NoTrans, blas.Trans, 1,
		blas64.General{Rows: m, Cols: k, Stride: k, Data: a},
		blas64.General{Rows: n, Cols: k, Stride: k, Data: b},
		0,
		blas64.General{Rows: m, Cols: n, Stride: n, Data: c})
}

func conv2d[T float](out, in, kernel []T, g convGeometry, gemm gemmNT[T], cfg parallel.Config) {
	colWidth := g.C * g.KH * g.KW
	colHeight := g.N * g.HOut * g.WOut
	plane := g.HOut * g.WOut

	colBuf := make([]T, colHeight*colWidth)
	parallel.For(colHeight, func(row int) {
		im2colRow(colBuf[row*colWidth:(row+1)*colWidth], in, row, g)
	}, cfg)

	// kernel is already [C_out, C_in*K_h*K_w] in row-major order.
	product := make([]T, g.F*colHeight)
	gemm(g.F, colHeight, colWidth, kernel, colBuf, product)

	// product[f, n*plane + p] -> out[n, f, p]
	parallel.ForGrid(g.F, g.N, func(f, n int) {
		src := product[f*colHeight+n*plane : f*colHeight+(n+1)*plane]
		copy(out[(n*g.F+f)*plane:], src)
	}, cfg)
}

// im2colRow fills one row of the [N*H_out*W_out, C*K_h*K_w] column matrix
// with the zero-padded patch under output position row.
func im2colRow[T float](buf, in []T, row int, g convGeometry) {
	n := row / (g.HOut * g.WOut)
	outH := row / g.WOut % g.HOut
	outW := row % g.WOut

	hStart := outH*g.stride[0] - g.padding[0]
	wStart := outW*g.stride[1] - g.padding[1]
	idx := 0

	for c := 0; c < g.C; c++ {
		channel := in[(n*g.C+c)*g.H*g.W:]
		for kh := 0; kh < g.KH; kh++ {
			h := hStart + kh
			for kw := 0; kw < g.KW; kw++ {
				w := wStart + kw
				if h >= 0 && h < g.H && w >= 0 && w < g.W {
					buf[idx] = channel[h*g.W+w]
				} else {
					buf[idx] = 0
				}
				idx++
			}
		}
	}
}
