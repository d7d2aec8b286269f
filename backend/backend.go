// Package backend presents one construction operation and one search
// operation over heterogeneous ANN index implementations.
//
// The index algorithms themselves are external collaborators reached through
// the Graph interface. Adapters hide the per-backend parameter naming and
// calling conventions: space-name translation, edge-count conventions,
// base-layer reuse, and which optional features a backend supports. Feature
// support is exposed as capability flags so callers dispatch on declared
// capabilities, never on concrete types.
package backend

import "github.com/annforge/annbench/dataset"

// DistanceKind selects the distance function an index is built for.
type DistanceKind string

const (
	// DistanceEuclidean is squared Euclidean (L2) distance.
	DistanceEuclidean DistanceKind = "l2"
	// DistanceInnerProduct is (negated) inner-product similarity.
	DistanceInnerProduct DistanceKind = "ip"
)

// Graph is the construction/search contract an index backend must satisfy.
// Implementations live outside this module (library bindings); the exact
// subpackage provides a brute-force reference implementation.
type Graph interface {
	// Init prepares the backend for the given space name and dimension.
	// Space names are backend-specific; adapters translate DistanceKind.
	Init(space string, dim int) error

	// Build constructs the index over vectors with the given external ids.
	Build(vectors dataset.Vectors, ids []uint32, constructionWidth, maxEdges, threads int) error

	// SetSearchWidth sets the candidate-list size used by Search.
	SetSearchWidth(width int) error

	// Search returns the ids and distances of the k nearest neighbors.
	Search(query []float32, k int) (ids []uint32, dists []float32, err error)

	// ExportBaseLayer writes the flat base-layer connectivity graph to path
	// as a sparse-matrix (MatrixMarket) file.
	ExportBaseLayer(path string) error

	// SetThreads sets the backend's internal thread count. Not safe to call
	// with searches in flight.
	SetThreads(n int) error
}

// Reorderer is implemented by graphs whose storage layout supports
// post-build id relabeling (locality-improving orders such as gorder/rcm).
type Reorderer interface {
	Reorder(strategies []string) error
}

// MultiInitSearcher is implemented by graphs that diversify search across
// multiple entry points.
type MultiInitSearcher interface {
	SearchFrom(query []float32, k, numInitializations int) (ids []uint32, dists []float32, err error)
}

// BaseLayerBuilder is implemented by graphs that can adopt another index's
// exported base-layer connectivity as their initial edge set, skipping their
// own candidate-list edge search.
type BaseLayerBuilder interface {
	BuildFromBaseLayer(vectors dataset.Vectors, ids []uint32, path string, threads int) error
}

// Capabilities declares which optional operations an adapter supports.
// Sweep validation consults these flags before any index is built.
type Capabilities struct {
	Reordering      bool
	MultiInitSearch bool
	BaseLayerExport bool
}

// BuildOptions parameterizes a single index construction.
type BuildOptions struct {
	DistanceKind      DistanceKind
	NodeLinks         int // requested edges per node, before any backend convention
	ConstructionWidth int // candidate-list size during construction
	BuildThreads      int

	// BaseLayerPath names the sparse-matrix file used for base-layer
	// export (HNSW) or reuse (Flat with UseBaseLayer).
	BaseLayerPath string
	// UseBaseLayer builds from an exported base layer instead of running
	// the backend's own edge search. The file must already exist.
	UseBaseLayer bool
}

// SearchParams parameterizes a single-query search.
type SearchParams struct {
	Width int // search candidate-list size
	K     int
	// NumInitializations diversifies entry points; only valid on adapters
	// whose Capabilities report MultiInitSearch.
	NumInitializations int
}

// Handle is an opaque built index. It is owned by the adapter that produced
// it; callers only configure thread counts and pass it back to the adapter.
type Handle struct {
	graph Graph
}

// SetThreads configures the index's internal thread count before use.
// Changing it concurrently with in-flight searches is not safe.
func (h *Handle) SetThreads(n int) error {
	return h.graph.SetThreads(n)
}

// Adapter is the uniform construction/search interface over a backend.
type Adapter interface {
	Name() string
	Capabilities() Capabilities

	// Build constructs an index and returns its handle.
	Build(vectors dataset.Vectors, opts BuildOptions) (*Handle, error)

	// Search runs one query against a built index. One call per query; the
	// caller measures wall-clock latency around it.
	Search(h *Handle, query []float32, p SearchParams) (dists []float32, ids []uint32, err error)

	// Reorder relabels node ids post-build. Only valid on adapters whose
	// Capabilities report Reordering.
	Reorder(h *Handle, strategies []string) error
}

// sequentialIDs returns the external ids 0..n-1 assigned to dataset rows.
func sequentialIDs(n int) []uint32 {
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}
	return ids
}
