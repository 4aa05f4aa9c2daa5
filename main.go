package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"image/png"

	"github.com/calebh/go-spectral-pathtracer/pkg/film"
	"github.com/calebh/go-spectral-pathtracer/pkg/integrator"
	"github.com/calebh/go-spectral-pathtracer/pkg/sampler"
	"github.com/calebh/go-spectral-pathtracer/pkg/scene"
)

// renderer is what every integrator exposes to the CLI
type renderer interface {
	Render() integrator.RenderStats
}

var integratorNames = []string{"path", "simple-path", "random-walk", "volpath", "bdpt", "mlt", "sppm"}

// buildIntegrator wires the requested algorithm to a scene and film.
// The returned function yields the splat scale to resolve the film
// with; it must be called after Render since Metropolis derives its
// normalization during rendering.
func buildIntegrator(name string, s *scene.Scene, f film.Film, smp sampler.Sampler, opts integrator.Options) (renderer, func() float64, error) {
	one := func() float64 { return 1 }
	switch name {
	case "path":
		return integrator.NewPath(s, f, smp, opts), one, nil
	case "simple-path":
		return integrator.NewSimplePath(s, f, smp, opts), one, nil
	case "random-walk":
		return integrator.NewRandomWalk(s, f, smp, opts), one, nil
	case "volpath":
		return integrator.NewVolPath(s, f, smp, opts), one, nil
	case "bdpt":
		bi := integrator.NewBDPT(s, f, smp, opts)
		return bi, bi.SplatScale, nil
	case "mlt":
		mi := integrator.NewMLT(s, f, opts)
		return mi, mi.SplatScale, nil
	case "sppm":
		return integrator.NewSPPM(s, f, smp, opts), one, nil
	default:
		return nil, nil, fmt.Errorf("unknown integrator %q (have %s)", name, strings.Join(integratorNames, ", "))
	}
}

func main() {
	sceneName := flag.String("scene", "cornell", "Scene: "+strings.Join(scene.Names(), ", "))
	integratorName := flag.String("integrator", "path", "Integrator: "+strings.Join(integratorNames, ", "))
	width := flag.Int("width", 400, "Image width in pixels")
	height := flag.Int("height", 400, "Image height in pixels")
	spp := flag.Int("spp", 64, "Samples per pixel")
	depth := flag.Int("depth", 8, "Maximum path depth")
	workers := flag.Int("workers", 0, "Worker goroutines, 0 for one per CPU")
	seed := flag.Uint64("seed", 1, "Sampler seed")
	outDir := flag.String("out", "output", "Output directory")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help {
		fmt.Println("Spectral path tracer")
		fmt.Println("Usage: pathtracer [options]")
		fmt.Println()
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Output is saved to <out>/<scene>/render_<timestamp>.png")
		return
	}

	names := scene.Names()
	sort.Strings(names)

	s, err := scene.Named(*sceneName, *width, *height)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v (have %s)\n", err, strings.Join(names, ", "))
		os.Exit(1)
	}

	f := film.FromRGB(film.NewRGBFilm(image.Rect(0, 0, *width, *height)))
	smp := sampler.FromIndependent(sampler.NewIndependent(*spp, *seed))

	opts := integrator.NewOptions()
	opts.SamplesPerPixel = *spp
	opts.MaxDepth = *depth
	opts.NumWorkers = *workers
	opts.MutationsPerPixel = *spp
	opts.Regularize = true

	r, splatScale, err := buildIntegrator(*integratorName, s, f, smp, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rendering %s with %s at %dx%d, %d spp...\n",
		*sceneName, *integratorName, *width, *height, *spp)
	stats := r.Render()
	fmt.Printf("Rendered %d pixels, %d samples in %v\n",
		stats.TotalPixels, stats.TotalSamples, stats.Duration.Round(time.Millisecond))

	dir := filepath.Join(*outDir, *sceneName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output directory: %v\n", err)
		os.Exit(1)
	}
	filename := filepath.Join(dir, fmt.Sprintf("render_%s.png", time.Now().Format("20060102_150405")))

	file, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	if err := png.Encode(file, f.ToImage(splatScale())); err != nil {
		fmt.Fprintf(os.Stderr, "error saving PNG: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Render saved as %s\n", filename)
}
