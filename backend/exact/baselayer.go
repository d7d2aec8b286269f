package exact

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/annforge/annbench/dataset"
)

// ExportBaseLayer writes the exact k-nearest-neighbor graph (maxEdges
// neighbors per node, as configured at build time) to path in MatrixMarket
// coordinate format. Neighbor computation fans out over the configured
// thread count. This is quadratic in the dataset size; it exists so the
// base-layer reuse path can be exercised against a known-good graph.
func (g *Graph) ExportBaseLayer(path string) error {
	if g.rows == 0 {
		return fmt.Errorf("exact: index not built")
	}
	edges := g.maxEdges
	if edges <= 0 || edges > g.rows-1 {
		edges = min(32, g.rows-1)
	}

	neighbors := make([][]uint32, g.rows)
	var eg errgroup.Group
	eg.SetLimit(g.threads)
	for i := 0; i < g.rows; i++ {
		eg.Go(func() error {
			row := g.data[i*g.dim : (i+1)*g.dim]
			type cand struct {
				id   uint32
				dist float32
			}
			cands := make([]cand, 0, g.rows-1)
			for j := 0; j < g.rows; j++ {
				if j == i {
					continue
				}
				cands = append(cands, cand{id: g.ids[j], dist: g.distance(row, j)})
			}
			sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })
			out := make([]uint32, edges)
			for e := 0; e < edges; e++ {
				out[e] = cands[e].id
			}
			neighbors[i] = out
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)

	fmt.Fprintln(w, "%%MatrixMarket matrix coordinate pattern general")
	fmt.Fprintf(w, "%d %d %d\n", g.rows, g.rows, g.rows*edges)
	for i, row := range neighbors {
		for _, n := range row {
			// MatrixMarket indices are 1-based.
			fmt.Fprintf(w, "%d %d\n", i+1, int(n)+1)
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// BuildFromBaseLayer adopts an exported base-layer file as this index's edge
// set. Exhaustive search never traverses edges, so only the file's geometry
// is validated; the vectors are stored exactly as in Build.
func (g *Graph) BuildFromBaseLayer(vectors dataset.Vectors, ids []uint32, path string, threads int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var rows, cols, nnz int
	seenHeader := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		if _, err := fmt.Sscanf(line, "%d %d %d", &rows, &cols, &nnz); err != nil {
			return fmt.Errorf("exact: malformed base layer size line %q: %w", line, err)
		}
		seenHeader = true
		break
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if !seenHeader {
		return fmt.Errorf("exact: base layer %s has no size line", path)
	}
	if rows != vectors.Rows() || cols != vectors.Rows() {
		return fmt.Errorf("exact: base layer is %dx%d but dataset has %d rows", rows, cols, vectors.Rows())
	}

	return g.Build(vectors, ids, 0, nnz/rows, threads)
}
