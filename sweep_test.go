package annbench_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annforge/annbench"
	"github.com/annforge/annbench/backend"
	"github.com/annforge/annbench/backend/exact"
	"github.com/annforge/annbench/dataset"
	"github.com/annforge/annbench/metrics"
	"github.com/annforge/annbench/results"
	"github.com/annforge/annbench/util"
)

type sweepFixture struct {
	train   dataset.Vectors
	queries dataset.Vectors
	gt      *dataset.GroundTruth
	k       int
}

func newSweepFixture(t *testing.T, rows, queries, dim, k int, space string) sweepFixture {
	t.Helper()

	rng := util.NewRNG(42)
	train := rng.GenerateRandomVectors(rows, dim)
	qs := rng.GenerateRandomVectors(queries, dim)

	ids, dists, err := util.BruteForceGroundTruth(train, qs, k, space, 4)
	require.NoError(t, err)

	return sweepFixture{
		train:   dataset.FromSlice(train),
		queries: dataset.FromSlice(qs),
		gt:      dataset.FromNeighbors(ids, dists),
		k:       k,
	}
}

func (f sweepFixture) config(store *results.Store) annbench.SweepConfig {
	return annbench.SweepConfig{
		Backend:            backend.NewFlat(exact.New()),
		Train:              f.train,
		Queries:            f.queries,
		GroundTruth:        f.gt,
		DistanceKind:       backend.DistanceEuclidean,
		NodeLinks:          []int{8},
		ConstructionWidths: []int{50},
		SearchWidths:       []int{50},
		K:                  f.k,
		Store:              store,
		Logger:             annbench.NoopLogger(),
	}
}

func TestRunSweepExactBackendPerfectRecall(t *testing.T) {
	f := newSweepFixture(t, 1000, 10, 4, 5, "l2")
	store := results.NewStore(filepath.Join(t.TempDir(), "results.json"))

	cfg := f.config(store)
	cfg.SearchWidths = []int{10, 50, 100}
	cfg.RunID = "run-test"

	require.NoError(t, annbench.RunSweep(context.Background(), cfg))

	doc, err := store.Load()
	require.NoError(t, err)
	recs := doc["flat"]
	require.Len(t, recs, 3, "one record per search width")

	for _, rec := range recs {
		assert.Equal(t, 1.0, rec.Values[metrics.Recall], "exact backend must have perfect recall")
		assert.Greater(t, rec.Values[metrics.QPS], 0.0)
		assert.Equal(t, 8, rec.NodeLinks)
		assert.Equal(t, 50, rec.ConstructionWidth)
		assert.Equal(t, "l2", rec.DistanceKind)
		assert.Equal(t, "run-test", rec.RunID)
	}
	assert.Equal(t, []int{10, 50, 100}, []int{recs[0].SearchWidth, recs[1].SearchWidth, recs[2].SearchWidth})
}

func TestRunSweepInnerProduct(t *testing.T) {
	f := newSweepFixture(t, 500, 8, 4, 3, "ip")
	store := results.NewStore(filepath.Join(t.TempDir(), "results.json"))

	cfg := f.config(store)
	cfg.DistanceKind = backend.DistanceInnerProduct

	require.NoError(t, annbench.RunSweep(context.Background(), cfg))

	doc, err := store.Load()
	require.NoError(t, err)
	require.Len(t, doc["flat"], 1)
	assert.Equal(t, 1.0, doc["flat"][0].Values[metrics.Recall])
	assert.Equal(t, "ip", doc["flat"][0].DistanceKind)
}

func TestRunSweepResumesAfterInterruption(t *testing.T) {
	f := newSweepFixture(t, 300, 5, 4, 3, "l2")
	path := filepath.Join(t.TempDir(), "results.json")

	// First run covers part of the grid.
	first := f.config(results.NewStore(path))
	first.SearchWidths = []int{10}
	first.RunID = "run-1"
	require.NoError(t, annbench.RunSweep(context.Background(), first))

	// Second run covers the rest; earlier records must survive the merge.
	second := f.config(results.NewStore(path))
	second.SearchWidths = []int{20, 40}
	second.RunID = "run-2"
	require.NoError(t, annbench.RunSweep(context.Background(), second))

	doc, err := results.NewStore(path).Load()
	require.NoError(t, err)
	recs := doc["flat"]
	require.Len(t, recs, 3)
	assert.Equal(t, "run-1", recs[0].RunID)
	assert.Equal(t, 10, recs[0].SearchWidth)
	assert.Equal(t, "run-2", recs[1].RunID)
	assert.Equal(t, "run-2", recs[2].RunID)
}

func TestRunSweepSurvivesCorruptedStore(t *testing.T) {
	f := newSweepFixture(t, 300, 5, 4, 3, "l2")
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage, not json"), 0644))

	cfg := f.config(results.NewStore(path, results.WithLogger(annbench.NoopLogger().Logger)))
	require.NoError(t, annbench.RunSweep(context.Background(), cfg))

	doc, err := results.NewStore(path).Load()
	require.NoError(t, err)
	require.Len(t, doc["flat"], 1, "sweep replaces the corrupt store with fresh records")
}

func TestRunSweepValidatesBeforeBuilding(t *testing.T) {
	f := newSweepFixture(t, 100, 5, 4, 3, "l2")
	store := results.NewStore(filepath.Join(t.TempDir(), "results.json"))

	t.Run("reorder on incapable backend", func(t *testing.T) {
		cfg := f.config(store)
		cfg.Backend = backend.NewHNSW(exact.New())
		cfg.ReorderStrategies = []string{"gorder", "rcm"}

		err := annbench.RunSweep(context.Background(), cfg)
		var unsupported *backend.ErrUnsupportedOperation
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "reorder", unsupported.Operation)
	})

	t.Run("multi-init on incapable backend", func(t *testing.T) {
		cfg := f.config(store)
		cfg.Backend = backend.NewHNSW(exact.New())
		cfg.NumInitializations = 3

		err := annbench.RunSweep(context.Background(), cfg)
		var unsupported *backend.ErrUnsupportedOperation
		require.ErrorAs(t, err, &unsupported)
	})

	t.Run("missing base layer", func(t *testing.T) {
		cfg := f.config(store)
		cfg.UseBaseLayer = true
		cfg.BaseLayerPath = filepath.Join(t.TempDir(), "absent.mtx")

		err := annbench.RunSweep(context.Background(), cfg)
		var missing *backend.ErrMissingBaseLayer
		require.ErrorAs(t, err, &missing)
	})

	t.Run("empty grid", func(t *testing.T) {
		cfg := f.config(store)
		cfg.SearchWidths = nil
		assert.Error(t, annbench.RunSweep(context.Background(), cfg))
	})

	t.Run("recall without ground truth", func(t *testing.T) {
		cfg := f.config(store)
		cfg.GroundTruth = nil
		assert.Error(t, annbench.RunSweep(context.Background(), cfg))
	})
}

func TestRunSweepReorderAndMultiInit(t *testing.T) {
	f := newSweepFixture(t, 400, 6, 4, 3, "l2")
	store := results.NewStore(filepath.Join(t.TempDir(), "results.json"))

	cfg := f.config(store)
	cfg.ReorderStrategies = []string{"gorder", "rcm"}
	cfg.NumInitializations = 2

	require.NoError(t, annbench.RunSweep(context.Background(), cfg))

	doc, err := store.Load()
	require.NoError(t, err)
	require.Len(t, doc["flat"], 1)
	assert.Equal(t, 1.0, doc["flat"][0].Values[metrics.Recall])
}

func TestRunSweepBaseLayerRoundTrip(t *testing.T) {
	f := newSweepFixture(t, 200, 4, 4, 3, "l2")
	dir := t.TempDir()
	baseLayer := filepath.Join(dir, "base.mtx")

	// Export via the HNSW adapter first.
	export := f.config(results.NewStore(filepath.Join(dir, "hnsw.json")))
	export.Backend = backend.NewHNSW(exact.New())
	export.BaseLayerPath = baseLayer
	require.NoError(t, annbench.RunSweep(context.Background(), export))
	_, err := os.Stat(baseLayer)
	require.NoError(t, err, "export must create the base layer file")

	// Reuse it for the flat adapter build.
	reuse := f.config(results.NewStore(filepath.Join(dir, "flat.json")))
	reuse.BaseLayerPath = baseLayer
	reuse.UseBaseLayer = true
	require.NoError(t, annbench.RunSweep(context.Background(), reuse))
}

func TestCollectEnvInfo(t *testing.T) {
	info := annbench.CollectEnvInfo()
	assert.NotEmpty(t, info.OS)
	assert.NotEmpty(t, info.Arch)
	assert.Greater(t, info.NumCPU, 0)
	assert.NotEmpty(t, info.GoVersion)
}
