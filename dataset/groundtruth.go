package dataset

// GroundTruth holds the true top-K neighbor ids (and optionally distances)
// for each query. In the raw-binary path both blocks are zero-copy windows
// into the mapped file; neither is materialized in process memory.
type GroundTruth struct {
	queries int
	k       int
	ids     []uint32  // queries*k, row-major
	dists   []float32 // queries*k, row-major; nil when the source omits them

	// Byte offsets of the two blocks within the source file (binary path).
	idsOffset   int
	distsOffset int
}

// Queries returns the number of queries covered.
func (g *GroundTruth) Queries() int { return g.queries }

// K returns the number of neighbors recorded per query.
func (g *GroundTruth) K() int { return g.k }

// IDs returns the true neighbor ids of query i. The slice is a view; do not
// modify it.
func (g *GroundTruth) IDs(i int) []uint32 {
	off := i * g.k
	return g.ids[off : off+g.k : off+g.k]
}

// Dists returns the true neighbor distances of query i, or nil if the source
// format does not carry distances.
func (g *GroundTruth) Dists(i int) []float32 {
	if g.dists == nil {
		return nil
	}
	off := i * g.k
	return g.dists[off : off+g.k : off+g.k]
}

// FromNeighbors builds an in-memory GroundTruth, mainly for tests and
// synthetic fixtures. dists may be nil.
func FromNeighbors(ids [][]uint32, dists [][]float32) *GroundTruth {
	g := &GroundTruth{queries: len(ids)}
	if len(ids) > 0 {
		g.k = len(ids[0])
	}
	g.ids = make([]uint32, 0, g.queries*g.k)
	for _, row := range ids {
		g.ids = append(g.ids, row...)
	}
	if dists != nil {
		g.dists = make([]float32, 0, g.queries*g.k)
		for _, row := range dists {
			g.dists = append(g.dists, row...)
		}
	}
	return g
}
