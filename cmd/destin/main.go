// Package main provides the Destin ML Framework CLI.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/destin-ml/destin/backend/cpu"
	"github.com/destin-ml/destin/backend/webgpu"
	"github.com/destin-ml/destin/nn"
	"github.com/destin-ml/destin/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "destin: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "Destin ML Framework %s\n", version)
		return nil
	case "forward":
		return forward(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Destin ML Framework - convolutional feature extraction for Go")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  forward    Build a conv layer from a YAML config and run it on random input")
}

type forwardOptions struct {
	config  string
	seed    uint64
	device  string
	low     float64
	high    float64
	save    string
	verbose bool
}

func forward(args []string, stdout, stderr io.Writer) error {
	var opts forwardOptions
	fs := flag.NewFlagSet("forward", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.config, "config", "", "Path to the layer YAML config (required)")
	fs.Uint64Var(&opts.seed, "seed", 1, "Seed for weights and synthetic input")
	fs.StringVar(&opts.device, "device", "cpu", "Execution device: cpu or webgpu")
	fs.Float64Var(&opts.low, "low", 0, "Lower bound of the synthetic input")
	fs.Float64Var(&opts.high, "high", 1, "Upper bound of the synthetic input")
	fs.StringVar(&opts.save, "save", "", "Write the initialized parameters to this SafeTensors file")
	fs.BoolVar(&opts.verbose, "v", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.config == "" {
		return errors.New("forward: -config is required")
	}
	if opts.low >= opts.high {
		return fmt.Errorf("forward: -low %v must be below -high %v", opts.low, opts.high)
	}

	f, err := os.Open(opts.config)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, err := nn.LoadConfig(f)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	device, err := tensor.ParseDevice(opts.device)
	if err != nil {
		return err
	}

	switch device {
	case tensor.CPU:
		return runLayer(cfg, opts, cpu.New(), stdout, logger)
	case tensor.WebGPU:
		gpu, err := webgpu.New()
		if err != nil {
			return err
		}
		defer gpu.Release()
		return runLayer(cfg, opts, gpu, stdout, logger)
	default:
		return fmt.Errorf("forward: device %s is not supported", device)
	}
}

func runLayer[B tensor.Backend](cfg nn.LayerConfig, opts forwardOptions, engine B, stdout io.Writer, logger *slog.Logger) error {
	input, err := syntheticInput(tensor.Shape(cfg.FeatureShape[:]), opts, engine)
	if err != nil {
		return err
	}

	layer, err := nn.NewConvLayer(cfg, input, rand.NewPCG(opts.seed, opts.seed+1), engine, nn.WithLogger(logger))
	if err != nil {
		return err
	}

	out := layer.Output()
	data := make([]float64, out.NumElements())
	for i, v := range out.Data() {
		data[i] = float64(v)
	}
	mean, std := stat.MeanStdDev(data, nil)

	fmt.Fprintln(stdout, layer)
	fmt.Fprintf(stdout, "filter bound: %.6f\n", layer.FilterBound())
	fmt.Fprintf(stdout, "output shape: %v\n", out.Shape())
	fmt.Fprintf(stdout, "output stats: min=%.6f max=%.6f mean=%.6f std=%.6f\n",
		floats.Min(data), floats.Max(data), mean, std)

	if opts.save == "" {
		return nil
	}
	f, err := os.Create(opts.save)
	if err != nil {
		return err
	}
	if err := layer.SaveParameters(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "parameters saved to %s\n", opts.save)
	return nil
}

// syntheticInput fills a feature map of the given shape with uniform noise.
// It draws from its own stream so changing the layer does not change the input.
func syntheticInput[B tensor.Backend](shape tensor.Shape, opts forwardOptions, engine B) (*tensor.Tensor[float32, B], error) {
	dist := distuv.Uniform{Min: opts.low, Max: opts.high, Src: rand.NewPCG(opts.seed, ^opts.seed)}
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32(dist.Rand())
	}
	return tensor.FromSlice(data, shape, engine)
}
