// Package exact provides a brute-force backend.Graph used as a recall
// baseline and in tests. Every search is an exhaustive scan, so returned
// neighbors are the true top-k; search width and entry-point initialization
// have no effect on results.
package exact

import (
	"container/heap"
	"fmt"

	"github.com/annforge/annbench/dataset"
	"github.com/annforge/annbench/internal/math32"
)

// Graph is an exact (non-approximate) index: vectors are stored flat and
// scanned in full on every search.
type Graph struct {
	space    string
	dim      int
	data     []float32 // rows*dim, row-major copy
	ids      []uint32
	rows     int
	maxEdges int
	threads  int
	width    int
}

// New creates an empty exact graph.
func New() *Graph {
	return &Graph{threads: 1}
}

// Init validates and records the space name and dimension. Accepted space
// names are "l2", "ip", and "angular" (the two inner-product spellings used
// by the adapters are equivalent here).
func (g *Graph) Init(space string, dim int) error {
	switch space {
	case "l2":
	case "ip", "angular":
		space = "ip"
	default:
		return fmt.Errorf("exact: unknown space %q", space)
	}
	if dim <= 0 {
		return fmt.Errorf("exact: invalid dimension %d", dim)
	}
	g.space = space
	g.dim = dim
	return nil
}

// Build copies the vectors; there is no graph to construct. The construction
// width is ignored, maxEdges is kept for base-layer export.
func (g *Graph) Build(vectors dataset.Vectors, ids []uint32, constructionWidth, maxEdges, threads int) error {
	if vectors.Dim() != g.dim {
		return fmt.Errorf("exact: vectors have dimension %d, index built for %d", vectors.Dim(), g.dim)
	}
	if len(ids) != vectors.Rows() {
		return fmt.Errorf("exact: %d ids for %d vectors", len(ids), vectors.Rows())
	}

	g.rows = vectors.Rows()
	g.data = make([]float32, g.rows*g.dim)
	for i := 0; i < g.rows; i++ {
		copy(g.data[i*g.dim:(i+1)*g.dim], vectors.Row(i))
	}
	g.ids = append([]uint32(nil), ids...)
	g.maxEdges = maxEdges
	if threads > 0 {
		g.threads = threads
	}
	return nil
}

// SetSearchWidth records the candidate-list size. Exhaustive scans ignore it;
// it is accepted so the adapter contract holds.
func (g *Graph) SetSearchWidth(width int) error {
	if width <= 0 {
		return fmt.Errorf("exact: invalid search width %d", width)
	}
	g.width = width
	return nil
}

// SetThreads sets the internal thread count used by base-layer export.
func (g *Graph) SetThreads(n int) error {
	if n <= 0 {
		return fmt.Errorf("exact: invalid thread count %d", n)
	}
	g.threads = n
	return nil
}

// Search returns the true k nearest neighbors by scanning all rows.
func (g *Graph) Search(query []float32, k int) ([]uint32, []float32, error) {
	if g.rows == 0 {
		return nil, nil, fmt.Errorf("exact: index not built")
	}
	if len(query) != g.dim {
		return nil, nil, fmt.Errorf("exact: query has dimension %d, index built for %d", len(query), g.dim)
	}
	if k <= 0 || k > g.rows {
		return nil, nil, fmt.Errorf("exact: k=%d with %d indexed vectors", k, g.rows)
	}

	// Max-heap of the k best candidates seen so far; the root is the current
	// worst, evicted whenever a closer row appears.
	h := make(candidateHeap, 0, k)
	for i := 0; i < g.rows; i++ {
		d := g.distance(query, i)
		if len(h) < k {
			heap.Push(&h, candidate{id: g.ids[i], dist: d})
			continue
		}
		if d < h[0].dist {
			h[0] = candidate{id: g.ids[i], dist: d}
			heap.Fix(&h, 0)
		}
	}

	ids := make([]uint32, k)
	dists := make([]float32, k)
	for i := k - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate)
		ids[i] = c.id
		dists[i] = c.dist
	}
	return ids, dists, nil
}

// SearchFrom implements multi-entry-point search. Entry points are
// irrelevant to an exhaustive scan, so it degenerates to Search.
func (g *Graph) SearchFrom(query []float32, k, numInitializations int) ([]uint32, []float32, error) {
	if numInitializations <= 0 {
		return nil, nil, fmt.Errorf("exact: invalid numInitializations %d", numInitializations)
	}
	return g.Search(query, k)
}

// Reorder validates the requested relabeling strategies. An exhaustive scan
// has no traversal locality to improve, so accepted strategies are no-ops.
func (g *Graph) Reorder(strategies []string) error {
	if g.rows == 0 {
		return fmt.Errorf("exact: index not built")
	}
	for _, s := range strategies {
		switch s {
		case "gorder", "rcm":
		default:
			return fmt.Errorf("exact: unknown reordering strategy %q", s)
		}
	}
	return nil
}

func (g *Graph) distance(query []float32, row int) float32 {
	v := g.data[row*g.dim : (row+1)*g.dim]
	if g.space == "l2" {
		return math32.SquaredL2(query, v)
	}
	return -math32.Dot(query, v)
}

type candidate struct {
	id   uint32
	dist float32
}

// candidateHeap is a max-heap on distance (worst candidate at the root).
type candidateHeap []candidate

func (h candidateHeap) Len() int            { return len(h) }
func (h candidateHeap) Less(i, j int) bool  { return h[i].dist > h[j].dist }
func (h candidateHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)         { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
