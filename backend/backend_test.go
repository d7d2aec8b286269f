package backend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annforge/annbench/dataset"
)

// fakeGraph records every call so tests can assert on translated parameters
// and on ordering guarantees (e.g. no build issued after a config error).
type fakeGraph struct {
	initSpace  string
	initDim    int
	buildCalls int
	maxEdges   int
	width      int
	threads    int
	searched   int
	exported   []string
	k          int
}

func (f *fakeGraph) Init(space string, dim int) error {
	f.initSpace = space
	f.initDim = dim
	return nil
}

func (f *fakeGraph) Build(vectors dataset.Vectors, ids []uint32, cw, maxEdges, threads int) error {
	f.buildCalls++
	f.maxEdges = maxEdges
	f.threads = threads
	return nil
}

func (f *fakeGraph) SetSearchWidth(width int) error {
	f.width = width
	return nil
}

func (f *fakeGraph) Search(query []float32, k int) ([]uint32, []float32, error) {
	f.searched++
	f.k = k
	ids := make([]uint32, k)
	dists := make([]float32, k)
	return ids, dists, nil
}

func (f *fakeGraph) ExportBaseLayer(path string) error {
	f.exported = append(f.exported, path)
	return os.WriteFile(path, []byte("%%MatrixMarket\n1 1 0\n"), 0o644)
}

func (f *fakeGraph) SetThreads(n int) error {
	f.threads = n
	return nil
}

func someVectors() dataset.Vectors {
	return dataset.FromSlice([][]float32{{1, 0}, {0, 1}, {1, 1}, {2, 2}})
}

func TestHNSWHalvesNodeLinks(t *testing.T) {
	g := &fakeGraph{}
	a := NewHNSW(g)

	_, err := a.Build(someVectors(), BuildOptions{
		DistanceKind:      DistanceEuclidean,
		NodeLinks:         32,
		ConstructionWidth: 100,
		BuildThreads:      2,
	})
	require.NoError(t, err)

	// The backend stores 2*M edges per node in its base layer.
	assert.Equal(t, 16, g.maxEdges)
	assert.Equal(t, 1, g.buildCalls)
	assert.Equal(t, "l2", g.initSpace)
	assert.Equal(t, 2, g.initDim)
}

func TestHNSWSpaceTranslation(t *testing.T) {
	g := &fakeGraph{}
	a := NewHNSW(g)

	_, err := a.Build(someVectors(), BuildOptions{DistanceKind: DistanceInnerProduct, NodeLinks: 8})
	require.NoError(t, err)
	assert.Equal(t, "ip", g.initSpace)
}

func TestFlatSpaceTranslation(t *testing.T) {
	g := &fakeGraph{}
	a := NewFlat(g)

	_, err := a.Build(someVectors(), BuildOptions{DistanceKind: DistanceInnerProduct, NodeLinks: 8})
	require.NoError(t, err)
	assert.Equal(t, "angular", g.initSpace)
	// No halving on the single-layer backend.
	assert.Equal(t, 8, g.maxEdges)
}

func TestHNSWRejectsUnsupportedOperations(t *testing.T) {
	g := &fakeGraph{}
	a := NewHNSW(g)

	caps := a.Capabilities()
	assert.False(t, caps.Reordering)
	assert.False(t, caps.MultiInitSearch)
	assert.True(t, caps.BaseLayerExport)

	h, err := a.Build(someVectors(), BuildOptions{DistanceKind: DistanceEuclidean, NodeLinks: 8})
	require.NoError(t, err)

	var unsupported *ErrUnsupportedOperation
	err = a.Reorder(h, []string{"gorder"})
	require.ErrorAs(t, err, &unsupported)

	_, _, err = a.Search(h, []float32{1, 0}, SearchParams{Width: 10, K: 2, NumInitializations: 100})
	require.ErrorAs(t, err, &unsupported)
	assert.Zero(t, g.searched, "no search must be issued after a configuration error")
}

func TestHNSWExportsBaseLayer(t *testing.T) {
	g := &fakeGraph{}
	a := NewHNSW(g)
	path := filepath.Join(t.TempDir(), "base.mtx")

	_, err := a.Build(someVectors(), BuildOptions{DistanceKind: DistanceEuclidean, NodeLinks: 8, BaseLayerPath: path})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, g.exported)
}

func TestFlatBaseLayerReuseRequiresFile(t *testing.T) {
	g := &fakeGraph{}
	a := NewFlat(g)

	_, err := a.Build(someVectors(), BuildOptions{
		DistanceKind:  DistanceEuclidean,
		NodeLinks:     8,
		UseBaseLayer:  true,
		BaseLayerPath: filepath.Join(t.TempDir(), "missing.mtx"),
	})
	var missing *ErrMissingBaseLayer
	require.ErrorAs(t, err, &missing)
	assert.Zero(t, g.buildCalls, "no build must run when the base layer is missing")
}

func TestFlatSearchSetsWidth(t *testing.T) {
	g := &fakeGraph{}
	a := NewFlat(g)

	h, err := a.Build(someVectors(), BuildOptions{DistanceKind: DistanceEuclidean, NodeLinks: 8})
	require.NoError(t, err)

	dists, ids, err := a.Search(h, []float32{1, 0}, SearchParams{Width: 123, K: 3})
	require.NoError(t, err)
	assert.Equal(t, 123, g.width)
	assert.Len(t, dists, 3)
	assert.Len(t, ids, 3)
}

func TestFlatCapabilitiesFollowGraph(t *testing.T) {
	// fakeGraph implements none of the optional interfaces.
	a := NewFlat(&fakeGraph{})
	caps := a.Capabilities()
	assert.False(t, caps.Reordering)
	assert.False(t, caps.MultiInitSearch)

	h, err := a.Build(someVectors(), BuildOptions{DistanceKind: DistanceEuclidean, NodeLinks: 8})
	require.NoError(t, err)

	var unsupported *ErrUnsupportedOperation
	_, _, err = a.Search(h, []float32{1, 0}, SearchParams{Width: 10, K: 1, NumInitializations: 5})
	require.ErrorAs(t, err, &unsupported)
}

func TestHandleSetThreads(t *testing.T) {
	g := &fakeGraph{}
	a := NewHNSW(g)
	h, err := a.Build(someVectors(), BuildOptions{DistanceKind: DistanceEuclidean, NodeLinks: 8})
	require.NoError(t, err)

	require.NoError(t, h.SetThreads(4))
	assert.Equal(t, 4, g.threads)
}
