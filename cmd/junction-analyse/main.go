// Package main provides the multi-resolution clustering tool for
// molecular-junction conductance-trace segments. It runs one density
// clustering pass per sensitivity parameter, extracts the full valley
// cluster hierarchy from each reachability profile, and optionally archives
// the complete result set for later re-analysis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/mcbj-data/conductance.report/internal/clusterstats"
	"github.com/mcbj-data/conductance.report/internal/config"
	"github.com/mcbj-data/conductance.report/internal/monitoring"
	"github.com/mcbj-data/conductance.report/internal/multires"
	"github.com/mcbj-data/conductance.report/internal/segment"
	storage "github.com/mcbj-data/conductance.report/internal/storage/sqlite"
	"github.com/mcbj-data/conductance.report/internal/valley"
	"github.com/mcbj-data/conductance.report/internal/version"
)

// Config holds the command line configuration.
type Config struct {
	DatasetFile string
	ConfigFile  string
	DBPath      string
	OutputJSON  string
	Cutoff      float64
	MinPtsList  string
	Workers     int
	Verbose     bool
	ShowVersion bool
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.DatasetFile, "dataset", "", "segmented-trace dataset JSON file (required)")
	flag.StringVar(&cfg.ConfigFile, "config", "", "tuning config JSON file (optional)")
	flag.StringVar(&cfg.DBPath, "db", "", "archive database path (optional; results are archived when set)")
	flag.StringVar(&cfg.OutputJSON, "json", "", "write the full result set as JSON to this file")
	flag.Float64Var(&cfg.Cutoff, "cutoff", 0, "minimum valley size fraction (overrides config)")
	flag.StringVar(&cfg.MinPtsList, "min-pts", "", "comma-separated minPts sweep (overrides config)")
	flag.IntVar(&cfg.Workers, "workers", 0, "parallel clustering passes (overrides config)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log per-parameter progress")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "print version and exit")
	flag.Parse()
	return cfg
}

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println("junction-analyse", version.String())
		return
	}

	if cfg.DatasetFile == "" {
		log.Fatal("dataset file is required (-dataset)")
	}

	tuning := config.EmptyTuningConfig()
	if cfg.ConfigFile != "" {
		loaded, err := config.LoadTuningConfig(cfg.ConfigFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		tuning = loaded
	}

	cutoff := tuning.GetCutoffFrac()
	if cfg.Cutoff != 0 {
		cutoff = cfg.Cutoff
	}
	params := tuning.GetSensitivityParams()
	if cfg.MinPtsList != "" {
		parsed, err := parseMinPtsList(cfg.MinPtsList)
		if err != nil {
			log.Fatalf("Invalid -min-pts: %v", err)
		}
		params = parsed
	}
	workers := tuning.GetWorkers()
	if cfg.Workers > 0 {
		workers = cfg.Workers
	}

	if !cfg.Verbose {
		monitoring.SetLogger(nil) // mute per-parameter progress
	}

	ds, err := segment.LoadDataset(cfg.DatasetFile)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	log.Printf("Loaded dataset %q: %d segments from %d traces (%d dropped)",
		ds.Name, len(ds.Segments), len(ds.UsedTraces()), len(ds.DroppedTraces))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := multires.NewRunner(&multires.OPTICSClusterer{MaxEps: tuning.GetMaxEps()}, cutoff, workers)
	results, err := runner.RunAll(ctx, ds, params)
	if err != nil {
		log.Fatalf("Clustering sweep failed: %v", err)
	}

	printSummary(results, ds, tuning.GetReferenceParameterIndex())

	if cfg.DBPath != "" {
		db, err := storage.Open(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open archive database: %v", err)
		}
		defer db.Close()

		archiveID, err := storage.NewArchiveStore(db).SaveResults(results)
		if err != nil {
			log.Fatalf("Failed to archive results: %v", err)
		}
		log.Printf("Archived results as %s", archiveID)
	}

	if cfg.OutputJSON != "" {
		blob, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal results: %v", err)
		}
		if err := os.WriteFile(cfg.OutputJSON, blob, 0644); err != nil {
			log.Fatalf("Failed to write %s: %v", cfg.OutputJSON, err)
		}
	}
}

func parseMinPtsList(list string) ([]int, error) {
	parts := strings.Split(list, ",")
	params := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if v < 1 {
			return nil, fmt.Errorf("minPts must be >= 1, got %d", v)
		}
		params = append(params, v)
	}
	return params, nil
}

func printSummary(results *multires.Results, ds *segment.Dataset, refIdx int) {
	fmt.Printf("Dataset %s: cutoff %.4g, %d sensitivity parameters\n",
		results.Dataset, results.CutoffFrac, len(results.Outputs))

	for _, out := range results.Outputs {
		groups := valley.Solutions(out.Clusters)
		fmt.Printf("  minPts=%-4d %d clusters in %d solutions\n", out.MinPts, len(out.Clusters), len(groups))
	}

	ref := results.Reference(refIdx)
	fmt.Printf("\nReference parameter minPts=%d:\n", ref.MinPts)

	stats, err := clusterstats.ComputeAll(ref, ds.FeatureMatrix())
	if err != nil {
		log.Fatalf("Failed to compute cluster statistics: %v", err)
	}
	fmt.Printf("  %-8s %-8s %-12s %-6s %-12s %s\n", "solution", "cluster", "interval", "size", "reach mean", "traces")
	for i, c := range ref.Clusters {
		s := stats[i]
		interval := fmt.Sprintf("[%d,%d]", c.Start, c.End)
		fmt.Printf("  %-8d %-8d %-12s %-6d %-12.4g %d\n",
			c.SolutionNumber, c.ClusterNumber, interval, c.Size, s.ReachMean, s.TraceCount)
	}
	if len(ref.Clusters) == 0 {
		fmt.Println("  no clusters survived the cutoff at this parameter")
	}
}
