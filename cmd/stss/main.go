package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stss/pkg/config"
	"stss/pkg/imageio"
	"stss/pkg/models"
	"stss/pkg/scalespace"
	"stss/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Image file (2D) or directory of slices (3D)")
	configPath := flag.String("config", "stss.yaml", "YAML configuration file")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	sigmas := flag.String("sigmas", "", "Comma-separated candidate scales, e.g. 1,2,3 (overrides config)")
	rhos := flag.String("rhos", "", "Comma-separated integration scales, one per sigma, used with -no-ring")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default: from config)")
	noRing := flag.Bool("no-ring", false, "Integrate with a Gaussian instead of the ring filter")
	noCorrect := flag.Bool("no-correct", false, "Report raw selected scales instead of corrected feature sizes")
	gamma := flag.Float64("gamma", 0, "Scale-normalization exponent (default: from config)")
	truncate := flag.Float64("truncate", 0, "Filter truncation in standard deviations (default: from config)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Command line flags override the config file
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *sigmas != "" {
		if cfg.ScaleSpace.Sigmas, err = parseList(*sigmas); err != nil {
			log.Fatalf("Invalid -sigmas: %v", err)
		}
	}
	if *rhos != "" {
		if cfg.ScaleSpace.Rhos, err = parseList(*rhos); err != nil {
			log.Fatalf("Invalid -rhos: %v", err)
		}
	}
	if *numCores > 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *noRing {
		cfg.ScaleSpace.RingFilter = false
		cfg.ScaleSpace.CorrectScale = false
	}
	if *noCorrect {
		cfg.ScaleSpace.CorrectScale = false
	}
	if *gamma > 0 {
		cfg.ScaleSpace.Gamma = *gamma
	}
	if *truncate > 0 {
		cfg.ScaleSpace.Truncate = *truncate
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("STRUCTURE TENSOR SCALE SPACE")
	fmt.Println("================================")

	fmt.Println("Step 1: Loading input...")
	img, err := imageio.Load(*inputPath, cfg.Processing.NumCores)
	if err != nil {
		log.Fatalf("Failed to load input: %v", err)
	}
	fmt.Printf("Loaded %dD image with shape %v\n", img.Dims(), img.Shape)

	params := cfg.ScaleSpaceParams()
	params.Diagnostics = func(e scalespace.Event) {
		switch {
		case e.Level == scalespace.LevelWarning:
			fmt.Printf("Warning: %s\n", e.Message)
		case cfg.Output.Verbose:
			fmt.Printf("   Progress: %d%% (%d/%d scales) %s\n",
				e.Completed*100/e.Total, e.Completed, e.Total, e.Message)
		}
	}

	fmt.Printf("Step 2: Running scale space over sigmas %v (ring filter: %v, correction: %v)...\n",
		params.Sigmas, params.RingFilter, params.CorrectScale)
	startTime := time.Now()
	res, err := scalespace.ScaleSpace(img, params)
	if err != nil {
		log.Fatalf("Scale space failed: %v", err)
	}
	processingTime := time.Since(startTime)

	summary := scalespace.Summarize(res.Scale)
	fmt.Printf("\nScale space completed in %.2f seconds using %d cores\n", processingTime.Seconds(), cfg.Processing.NumCores)
	fmt.Printf("Scale map statistics:\n")
	fmt.Printf("=====================\n")
	fmt.Printf("Min: %.3f  Max: %.3f\n", summary.Min, summary.Max)
	fmt.Printf("Mean: %.3f  StdDev: %.3f  Median: %.3f\n", summary.Mean, summary.StdDev, summary.Median)
	if summary.NonFinite > 0 {
		fmt.Printf("Non-finite values: %d\n", summary.NonFinite)
	}
	if !params.CorrectScale {
		counts := scalespace.CountSelections(res.Scale, params.Sigmas)
		for i, s := range params.Sigmas {
			fmt.Printf("- sigma %.3f selected at %d pixels\n", s, counts[i])
		}
	}

	fmt.Println("\nStep 3: Saving results...")
	if err := saveResults(cfg, res); err != nil {
		log.Fatalf("Failed to save results: %v", err)
	}
	fmt.Printf("Results saved to: %s\n", cfg.Output.Dir)
}

// saveResults writes the scale map, orientation and anisotropy renderings and
// the raw fields requested by the configuration
func saveResults(cfg *config.Config, res *scalespace.Result) error {
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	if cfg.Output.SaveImages {
		maps := map[string]*models.Image{
			"scale":       res.Scale,
			"orientation": visualization.OrientationAngle(res.Eigen),
			"anisotropy":  visualization.Anisotropy(res.Eigen),
		}
		for name, field := range maps {
			viewer, err := visualization.NewViewer(field)
			if err != nil {
				return err
			}
			if err := viewer.SaveSliceSequence("z", filepath.Join(cfg.Output.Dir, name)); err != nil {
				fmt.Printf("Warning: Failed to save %s images: %v\n", name, err)
			}
		}
	}

	if cfg.Output.SaveRaw {
		raw := []struct {
			name     string
			data     []float64
			channels int
		}{
			{"scale.f64", res.Scale.Data, 1},
			{"tensor.f64", res.S.Data, res.S.Channels},
			{"eigenvalues.f64", res.Eigen.Values, res.Eigen.Dims},
			{"eigenvectors.f64", res.Eigen.Vectors, res.Eigen.Dims * res.Eigen.Dims},
		}
		for _, r := range raw {
			if err := imageio.SaveRaw(filepath.Join(cfg.Output.Dir, r.name), r.data, res.Scale.Shape, r.channels); err != nil {
				return fmt.Errorf("failed to save %s: %w", r.name, err)
			}
		}
	}

	return nil
}

// parseList parses a comma-separated list of numbers
func parseList(s string) ([]float64, error) {
	var values []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
