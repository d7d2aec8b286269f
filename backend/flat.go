package backend

import (
	"os"

	"github.com/annforge/annbench/dataset"
)

// Flat adapts a single-layer, flat-graph backend.
//
// This backend names its inner-product space "angular", takes the requested
// node-link count as-is, and supports the optional operations the multi-layer
// backend lacks: post-build id relabeling and multi-entry-point search. It
// can also adopt the multi-layer backend's exported base layer as its initial
// edge set instead of running its own candidate-list edge search.
type Flat struct {
	graph Graph

	reorderer Reorderer
	multiInit MultiInitSearcher
	baseLayer BaseLayerBuilder
}

// NewFlat wraps the given single-layer graph backend. Optional operations
// are available when the graph implements the corresponding interface.
func NewFlat(g Graph) *Flat {
	a := &Flat{graph: g}
	a.reorderer, _ = g.(Reorderer)
	a.multiInit, _ = g.(MultiInitSearcher)
	a.baseLayer, _ = g.(BaseLayerBuilder)
	return a
}

// Name returns "flat".
func (a *Flat) Name() string { return "flat" }

// Capabilities reports what the wrapped graph actually implements.
func (a *Flat) Capabilities() Capabilities {
	return Capabilities{
		Reordering:      a.reorderer != nil,
		MultiInitSearch: a.multiInit != nil,
	}
}

func (a *Flat) space(kind DistanceKind) string {
	if kind == DistanceEuclidean {
		return "l2"
	}
	return "angular"
}

// Build constructs the index. With opts.UseBaseLayer the exported base-layer
// file must already exist; the backend adopts its connectivity and the
// construction width is ignored (it was spent building the base layer).
func (a *Flat) Build(vectors dataset.Vectors, opts BuildOptions) (*Handle, error) {
	if err := a.graph.Init(a.space(opts.DistanceKind), vectors.Dim()); err != nil {
		return nil, err
	}

	ids := sequentialIDs(vectors.Rows())

	if opts.UseBaseLayer {
		if opts.BaseLayerPath == "" {
			return nil, &ErrMissingBaseLayer{Path: opts.BaseLayerPath}
		}
		if _, err := os.Stat(opts.BaseLayerPath); err != nil {
			return nil, &ErrMissingBaseLayer{Path: opts.BaseLayerPath}
		}
		if a.baseLayer == nil {
			return nil, &ErrUnsupportedOperation{Backend: a.Name(), Operation: "base layer reuse"}
		}
		if err := a.baseLayer.BuildFromBaseLayer(vectors, ids, opts.BaseLayerPath, opts.BuildThreads); err != nil {
			return nil, err
		}
		return &Handle{graph: a.graph}, nil
	}

	if err := a.graph.Build(vectors, ids, opts.ConstructionWidth, opts.NodeLinks, opts.BuildThreads); err != nil {
		return nil, err
	}
	return &Handle{graph: a.graph}, nil
}

// Search runs one query, using multi-entry-point initialization when
// requested and supported.
func (a *Flat) Search(h *Handle, query []float32, p SearchParams) ([]float32, []uint32, error) {
	if err := h.graph.SetSearchWidth(p.Width); err != nil {
		return nil, nil, err
	}
	if p.NumInitializations > 0 {
		if a.multiInit == nil {
			return nil, nil, &ErrUnsupportedOperation{Backend: a.Name(), Operation: "multi-initialization search"}
		}
		ids, dists, err := a.multiInit.SearchFrom(query, p.K, p.NumInitializations)
		if err != nil {
			return nil, nil, err
		}
		return dists, ids, nil
	}
	ids, dists, err := h.graph.Search(query, p.K)
	if err != nil {
		return nil, nil, err
	}
	return dists, ids, nil
}

// Reorder relabels node ids with the given strategies (e.g. "gorder",
// "rcm") to improve traversal locality without changing graph topology.
func (a *Flat) Reorder(h *Handle, strategies []string) error {
	if a.reorderer == nil {
		return &ErrUnsupportedOperation{Backend: a.Name(), Operation: "graph reordering"}
	}
	return a.reorderer.Reorder(strategies)
}
