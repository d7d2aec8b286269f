package util

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/annforge/annbench/internal/math32"
)

// WriteVectorFile writes vectors in the raw float32 binary layout:
// [uint32 count][uint32 dim][count*dim float32].
func WriteVectorFile(path string, vecs [][]float32) error {
	return writeBinary(path, func(w *bufio.Writer) error {
		dim := 0
		if len(vecs) > 0 {
			dim = len(vecs[0])
		}
		if err := writeHeader(w, uint32(len(vecs)), uint32(dim)); err != nil {
			return err
		}
		for _, v := range vecs {
			if len(v) != dim {
				return fmt.Errorf("util: ragged vector of dimension %d, want %d", len(v), dim)
			}
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteUint8VectorFile writes vectors in the raw uint8 binary layout,
// truncating each element to a byte.
func WriteUint8VectorFile(path string, vecs [][]float32) error {
	return writeBinary(path, func(w *bufio.Writer) error {
		dim := 0
		if len(vecs) > 0 {
			dim = len(vecs[0])
		}
		if err := writeHeader(w, uint32(len(vecs)), uint32(dim)); err != nil {
			return err
		}
		for _, v := range vecs {
			for _, x := range v {
				if err := w.WriteByte(byte(x)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WriteGroundTruthFile writes neighbors in the ground-truth binary layout:
// [uint32 queries][uint32 k][q*k uint32 ids][q*k float32 dists].
func WriteGroundTruthFile(path string, ids [][]uint32, dists [][]float32) error {
	if len(ids) != len(dists) {
		return fmt.Errorf("util: %d id rows but %d distance rows", len(ids), len(dists))
	}
	return writeBinary(path, func(w *bufio.Writer) error {
		k := 0
		if len(ids) > 0 {
			k = len(ids[0])
		}
		if err := writeHeader(w, uint32(len(ids)), uint32(k)); err != nil {
			return err
		}
		for _, row := range ids {
			if err := binary.Write(w, binary.LittleEndian, row); err != nil {
				return err
			}
		}
		for _, row := range dists {
			if err := binary.Write(w, binary.LittleEndian, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeHeader(w *bufio.Writer, a, b uint32) error {
	if err := binary.Write(w, binary.LittleEndian, a); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, b)
}

func writeBinary(path string, fn func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// BruteForceGroundTruth computes the exact top-k neighbors of each query by
// exhaustive scan, fanning queries out over workers goroutines. space is
// "l2" (squared Euclidean, ascending) or "ip" (negated inner product,
// ascending). If workers <= 0, GOMAXPROCS is used.
func BruteForceGroundTruth(train, queries [][]float32, k int, space string, workers int) (ids [][]uint32, dists [][]float32, err error) {
	if space != "l2" && space != "ip" {
		return nil, nil, fmt.Errorf("util: unknown space %q", space)
	}
	if k <= 0 || k > len(train) {
		return nil, nil, fmt.Errorf("util: k=%d with %d train vectors", k, len(train))
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ids = make([][]uint32, len(queries))
	dists = make([][]float32, len(queries))

	var g errgroup.Group
	g.SetLimit(workers)
	for qi := range queries {
		g.Go(func() error {
			type cand struct {
				id   uint32
				dist float32
			}
			cands := make([]cand, len(train))
			for i, v := range train {
				var d float32
				if space == "l2" {
					d = math32.SquaredL2(queries[qi], v)
				} else {
					d = -math32.Dot(queries[qi], v)
				}
				cands[i] = cand{id: uint32(i), dist: d}
			}
			sort.Slice(cands, func(a, b int) bool {
				if cands[a].dist != cands[b].dist {
					return cands[a].dist < cands[b].dist
				}
				return cands[a].id < cands[b].id
			})
			rowIDs := make([]uint32, k)
			rowDists := make([]float32, k)
			for i := 0; i < k; i++ {
				rowIDs[i] = cands[i].id
				rowDists[i] = cands[i].dist
			}
			ids[qi] = rowIDs
			dists[qi] = rowDists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return ids, dists, nil
}
