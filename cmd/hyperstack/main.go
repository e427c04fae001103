package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"hyperstack/internal/logging"
	"hyperstack/pkg/axis"
	"hyperstack/pkg/config"
	"hyperstack/pkg/parallel"
	"hyperstack/pkg/stack"
	"hyperstack/pkg/visualization"
	"hyperstack/pkg/volume"
)

func fatalf(format string, args ...interface{}) {
	logging.Criticalf(format, args...)
	logging.Shutdown()
	os.Exit(1)
}

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "", "YAML or TOML configuration file")
	width := flag.Int("x", 128, "Frame width in pixels")
	height := flag.Int("y", 128, "Frame height in pixels")
	depth := flag.Int("z", 32, "Number of Z planes")
	timePoints := flag.Int("t", 3, "Number of time points")
	timeIndex := flag.Int("time", 0, "Time point to project")
	project := flag.String("project", "max", "Projection: max, min, avg or sum")
	direction := flag.String("axis", "z", "Direction to project along: x, y or z")
	outputDir := flag.String("output", "", "Output directory (overrides the configuration)")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (overrides the configuration)")
	saveSlices := flag.Bool("slices", false, "Save every X, Y and Z slice of the projected time point")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadConfig(*configPath); err != nil {
			fatalf("Failed to load configuration: %v", err)
		}
	}
	if *outputDir != "" {
		cfg.Output.Directory = *outputDir
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *saveSlices {
		cfg.Output.SaveSlices = true
	}
	if err := cfg.Apply(); err != nil {
		fatalf("Failed to apply configuration: %v", err)
	}
	defer logging.Shutdown()

	op, err := volume.ParseOp(*project)
	if err != nil {
		fatalf("%v", err)
	}
	dir, err := volume.ParseDirection(*direction)
	if err != nil {
		fatalf("%v", err)
	}
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		fatalf("Failed to create output directory: %v", err)
	}

	startTime := time.Now()
	s, err := synthesize(cfg, *width, *height, *depth, *timePoints)
	if err != nil {
		fatalf("Failed to build stack: %v", err)
	}
	defer s.Close()
	logging.Infof("Built %s holding %s", s, humanize.Bytes(s.Footprint()))

	if err := s.SetPosition(axis.NameTime, *timeIndex); err != nil {
		fatalf("Failed to select time point %d: %v", *timeIndex, err)
	}

	vol, err := volume.FromStack(s, axis.NameZ)
	if err != nil {
		fatalf("Failed to view stack as a volume: %v", err)
	}
	vol.WithWorkers(cfg.Processing.NumCores).
		WithBlockSize(cfg.Processing.BlockSize).
		WithAllocationLimit(cfg.Processing.MaxAllocBytes)

	proj, err := volume.Project(vol, dir, op)
	if err != nil {
		fatalf("Projection failed: %v", err)
	}
	defer proj.Close()

	projPath := filepath.Join(cfg.Output.Directory, fmt.Sprintf("%s_%s.jpg", op, dir))
	viewer := visualization.NewViewer(proj).WithQuality(cfg.Output.JPEGQuality)
	if err := viewer.SaveFrame(0, projPath); err != nil {
		fatalf("Failed to save projection: %v", err)
	}
	fmt.Printf("%s projection along %s saved to: %s\n", op, dir, projPath)

	if cfg.Output.SaveSlices {
		slices := visualization.NewViewer(s).
			WithDepthAxis(axis.NameZ).
			WithQuality(cfg.Output.JPEGQuality).
			WithWorkers(cfg.Processing.NumCores)
		for _, name := range []string{"x", "y", "z"} {
			axisDir := filepath.Join(cfg.Output.Directory, "slices", name)
			fmt.Printf("Saving %s-axis slices to: %s\n", name, axisDir)
			if err := slices.SaveSliceSequence(name, axisDir); err != nil {
				logging.Warningf("Failed to save %s-axis slices: %v", name, err)
			}
		}
	}

	desc, err := s.Describe(true)
	if err != nil {
		fatalf("Failed to describe stack: %v", err)
	}
	descPath := filepath.Join(cfg.Output.Directory, "description.msgp")
	f, err := os.Create(descPath)
	if err != nil {
		fatalf("Failed to create %s: %v", descPath, err)
	}
	if err := desc.Write(f); err != nil {
		f.Close()
		fatalf("Failed to write %s: %v", descPath, err)
	}
	if err := f.Close(); err != nil {
		fatalf("Failed to write %s: %v", descPath, err)
	}

	fmt.Printf("Description saved to: %s (%s)\n", descPath, humanize.Bytes(uint64(desc.Msgsize())))
	fmt.Printf("Completed in %.2f seconds using %d cores\n", time.Since(startTime).Seconds(), parallel.DefaultWorkers())
}

// synthesize builds a Z by T stack of a bright sphere drifting across the
// plane over time.
func synthesize(cfg *config.Config, width, height, depth, timePoints int) (*stack.Stack[uint16], error) {
	z, err := axis.NewZ(depth, 0, 0.5*float64(depth-1))
	if err != nil {
		return nil, err
	}
	t, err := axis.NewTime(timePoints, 0, float64(timePoints-1))
	if err != nil {
		return nil, err
	}
	s, err := stack.New[uint16](width, height, depth*timePoints,
		stack.WithAxes(z, t),
		stack.WithAllocationLimit(cfg.Processing.MaxAllocBytes))
	if err != nil {
		return nil, err
	}

	buffers, err := s.MutableBuffers()
	if err != nil {
		s.Close()
		return nil, err
	}
	radius := 0.3 * float64(min(width, height, depth))
	dims := s.Dimensions()
	parallel.For(len(buffers), cfg.Processing.NumCores, func(lo, hi int) {
		idx := make([]int, dims.Rank())
		for f := lo; f < hi; f++ {
			if err := dims.CopyAxisIndicesTo(idx, f); err != nil {
				continue
			}
			iz, it := idx[0], idx[1]
			cx := float64(width)/2 + float64(it)*radius/2
			cy, cz := float64(height)/2, float64(depth)/2
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					d := math.Hypot(math.Hypot(float64(x)-cx, float64(y)-cy), float64(iz)-cz)
					v := 60000 * math.Exp(-d*d/(2*radius*radius))
					buffers[f][y*width+x] = uint16(v) + uint16((x*7+y*13+iz*3)%97)
				}
			}
		}
	})
	return s, nil
}
