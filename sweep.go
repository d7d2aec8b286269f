package annbench

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/annforge/annbench/backend"
	"github.com/annforge/annbench/dataset"
	"github.com/annforge/annbench/metrics"
	"github.com/annforge/annbench/results"
)

// SweepConfig describes one grid of benchmark configurations for a single
// backend over a single dataset.
type SweepConfig struct {
	// Backend is the adapter under measurement.
	Backend backend.Adapter

	// Train holds the vectors the index is built from; Queries and
	// GroundTruth score the searches.
	Train       dataset.Vectors
	Queries     dataset.Vectors
	GroundTruth *dataset.GroundTruth

	DistanceKind backend.DistanceKind

	// NodeLinks and ConstructionWidths span the build grid; each pair builds
	// one index. SearchWidths are measured against every built index.
	NodeLinks          []int
	ConstructionWidths []int
	SearchWidths       []int

	// K is the neighbor count per query. Defaults to 100.
	K int

	// NumInitializations diversifies search entry points on backends that
	// support it; zero leaves the backend default.
	NumInitializations int

	// ReorderStrategies, when non-empty, relabels node ids after each build.
	ReorderStrategies []string

	BuildThreads  int
	SearchThreads int

	// BaseLayerPath names the sparse-matrix file for base-layer export or
	// reuse. UseBaseLayer requires the file to already exist.
	BaseLayerPath string
	UseBaseLayer  bool

	// Metrics selects what to compute per configuration. Defaults to all.
	Metrics []metrics.Metric

	// Store receives one record per measured configuration.
	Store *results.Store

	Logger *Logger

	// RunID tags every record written by this sweep. Defaults to a random
	// UUID so reruns are distinguishable in the results file.
	RunID string
}

func (cfg *SweepConfig) applyDefaults() {
	if cfg.K == 0 {
		cfg.K = 100
	}
	if len(cfg.Metrics) == 0 {
		cfg.Metrics = metrics.AllMetrics
	}
	if cfg.BuildThreads == 0 {
		cfg.BuildThreads = 1
	}
	if cfg.SearchThreads == 0 {
		cfg.SearchThreads = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = NewLogger(nil)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
}

func (cfg *SweepConfig) validate() error {
	if cfg.Backend == nil {
		return fmt.Errorf("sweep: no backend configured")
	}
	if cfg.Train == nil || cfg.Queries == nil {
		return fmt.Errorf("sweep: train and query vectors are required")
	}
	if cfg.Store == nil {
		return fmt.Errorf("sweep: no results store configured")
	}
	if len(cfg.NodeLinks) == 0 || len(cfg.ConstructionWidths) == 0 || len(cfg.SearchWidths) == 0 {
		return fmt.Errorf("sweep: node links, construction widths and search widths must be non-empty")
	}
	if cfg.K <= 0 {
		return fmt.Errorf("sweep: k must be positive, got %d", cfg.K)
	}

	caps := cfg.Backend.Capabilities()
	if len(cfg.ReorderStrategies) > 0 && !caps.Reordering {
		return &backend.ErrUnsupportedOperation{Backend: cfg.Backend.Name(), Operation: "reorder"}
	}
	if cfg.NumInitializations > 0 && !caps.MultiInitSearch {
		return &backend.ErrUnsupportedOperation{Backend: cfg.Backend.Name(), Operation: "multi-init search"}
	}
	if cfg.UseBaseLayer {
		if _, err := os.Stat(cfg.BaseLayerPath); err != nil {
			return &backend.ErrMissingBaseLayer{Path: cfg.BaseLayerPath}
		}
	}

	for _, m := range cfg.Metrics {
		if m == metrics.Recall && cfg.GroundTruth == nil {
			return fmt.Errorf("sweep: recall requested without ground truth")
		}
	}
	return nil
}

// RunSweep measures every configuration in the grid and appends one record
// per (nodeLinks, constructionWidth, searchWidth) combination to the results
// store. Configuration problems are reported before any index is built, so a
// sweep never wastes a multi-hour build on a combination that cannot be
// scored. Records are persisted as they are produced; a crashed sweep keeps
// everything measured so far.
func RunSweep(ctx context.Context, cfg SweepConfig) error {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	logger := cfg.Logger.WithRunID(cfg.RunID).WithBackend(cfg.Backend.Name()).WithK(cfg.K)
	logger.InfoContext(ctx, "sweep started",
		"env", CollectEnvInfo(),
		"train_rows", cfg.Train.Rows(),
		"queries", cfg.Queries.Rows(),
		"dim", cfg.Train.Dim(),
	)

	for _, nodeLinks := range cfg.NodeLinks {
		for _, constructionWidth := range cfg.ConstructionWidths {
			if err := ctx.Err(); err != nil {
				return err
			}

			opts := backend.BuildOptions{
				DistanceKind:      cfg.DistanceKind,
				NodeLinks:         nodeLinks,
				ConstructionWidth: constructionWidth,
				BuildThreads:      cfg.BuildThreads,
				BaseLayerPath:     cfg.BaseLayerPath,
				UseBaseLayer:      cfg.UseBaseLayer,
			}

			start := time.Now()
			h, err := cfg.Backend.Build(cfg.Train, opts)
			logger.LogBuild(ctx, nodeLinks, constructionWidth, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("sweep: build (node_links=%d, ef_construction=%d): %w",
					nodeLinks, constructionWidth, err)
			}

			if len(cfg.ReorderStrategies) > 0 {
				if err := cfg.Backend.Reorder(h, cfg.ReorderStrategies); err != nil {
					return fmt.Errorf("sweep: reorder: %w", err)
				}
			}

			if err := h.SetThreads(cfg.SearchThreads); err != nil {
				return fmt.Errorf("sweep: set search threads: %w", err)
			}

			for _, searchWidth := range cfg.SearchWidths {
				if err := ctx.Err(); err != nil {
					return err
				}

				rec, err := cfg.measure(h, searchWidth)
				if err != nil {
					return fmt.Errorf("sweep: measure (ef_search=%d): %w", searchWidth, err)
				}

				rec.RunID = cfg.RunID
				rec.NodeLinks = nodeLinks
				rec.ConstructionWidth = constructionWidth
				rec.DistanceKind = string(cfg.DistanceKind)

				if err := cfg.Store.Append(cfg.Backend.Name(), *rec); err != nil {
					return fmt.Errorf("sweep: persist record: %w", err)
				}
				logger.LogSearchPass(ctx, searchWidth,
					rec.Values[metrics.Recall], rec.Values[metrics.QPS])
			}
		}
	}

	logger.InfoContext(ctx, "sweep completed", "results", cfg.Store.Path())
	return nil
}

func (cfg *SweepConfig) measure(h *backend.Handle, searchWidth int) (*metrics.Record, error) {
	search := func(query []float32, width, k int) ([]float32, []uint32, error) {
		return cfg.Backend.Search(h, query, backend.SearchParams{
			Width:              width,
			K:                  k,
			NumInitializations: cfg.NumInitializations,
		})
	}
	return metrics.Compute(cfg.Metrics, search, cfg.Queries, cfg.GroundTruth, searchWidth, cfg.K)
}

// Plotter renders one metric from a results document to a file. The sweep
// itself never draws; rendering is left to callers so headless benchmark
// boxes need no plotting toolchain.
type Plotter interface {
	Plot(doc results.Document, metric metrics.Metric, outPath string) error
}
