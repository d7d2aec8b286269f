package backend

import "github.com/annforge/annbench/dataset"

// HNSW adapts a hierarchical multi-layer backend.
//
// Two conventions are translated here. The backend names its inner-product
// space "ip" rather than accepting a distance kind, and it stores 2*M edges
// per node in its base layer, so the requested node-link count is halved
// before being passed down to keep "edges per node" comparable across
// backends. The halving is a documented convention, not a provable
// equivalence.
type HNSW struct {
	graph Graph
}

// NewHNSW wraps the given multi-layer graph backend.
func NewHNSW(g Graph) *HNSW {
	return &HNSW{graph: g}
}

// Name returns "hnsw".
func (a *HNSW) Name() string { return "hnsw" }

// Capabilities reports base-layer export only: the backend's storage layout
// supports neither online relabeling nor multi-entry-point search.
func (a *HNSW) Capabilities() Capabilities {
	return Capabilities{BaseLayerExport: true}
}

func (a *HNSW) space(kind DistanceKind) string {
	if kind == DistanceEuclidean {
		return "l2"
	}
	return "ip"
}

// Build constructs the index. When opts.BaseLayerPath is set, the base-layer
// connectivity graph is exported to that file after the build so a
// single-layer backend can reuse it.
func (a *HNSW) Build(vectors dataset.Vectors, opts BuildOptions) (*Handle, error) {
	if opts.UseBaseLayer {
		return nil, &ErrUnsupportedOperation{Backend: a.Name(), Operation: "base layer reuse"}
	}

	if err := a.graph.Init(a.space(opts.DistanceKind), vectors.Dim()); err != nil {
		return nil, err
	}

	// Base layer holds twice the configured edge count.
	maxEdges := opts.NodeLinks / 2

	ids := sequentialIDs(vectors.Rows())
	if err := a.graph.Build(vectors, ids, opts.ConstructionWidth, maxEdges, opts.BuildThreads); err != nil {
		return nil, err
	}

	if opts.BaseLayerPath != "" {
		if err := a.graph.ExportBaseLayer(opts.BaseLayerPath); err != nil {
			return nil, err
		}
	}

	return &Handle{graph: a.graph}, nil
}

// Search runs one query. Multi-entry-point initialization is not supported
// by this backend; requesting it is a configuration error.
func (a *HNSW) Search(h *Handle, query []float32, p SearchParams) ([]float32, []uint32, error) {
	if p.NumInitializations > 0 {
		return nil, nil, &ErrUnsupportedOperation{Backend: a.Name(), Operation: "multi-initialization search"}
	}
	if err := h.graph.SetSearchWidth(p.Width); err != nil {
		return nil, nil, err
	}
	ids, dists, err := h.graph.Search(query, p.K)
	if err != nil {
		return nil, nil, err
	}
	return dists, ids, nil
}

// Reorder always fails: the backend's storage layout does not support online
// relabeling.
func (a *HNSW) Reorder(h *Handle, strategies []string) error {
	return &ErrUnsupportedOperation{Backend: a.Name(), Operation: "graph reordering"}
}
