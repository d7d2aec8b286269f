package dataset

import (
	"fmt"
	"os"
	"strings"

	"github.com/sbinet/npyio"
)

// openNPY loads the columnar-serialized variant: whole-array npy files for
// train, queries, and ground truth. Vectors are normalized to float32 and
// ground-truth ids to 32-bit integers. The npy ground-truth layout carries no
// distances, so the distance views are nil in this path.
func openNPY(p Paths) (*Benchmark, error) {
	train, err := loadNPYVectors(p.Train)
	if err != nil {
		return nil, err
	}
	queries, err := loadNPYVectors(p.Queries)
	if err != nil {
		return nil, err
	}
	gt, err := loadNPYGroundTruth(p.GroundTruth)
	if err != nil {
		return nil, err
	}
	return &Benchmark{Train: train, Queries: queries, GroundTruth: gt}, nil
}

func npyShape(path string, r *npyio.Reader) (rows, cols int, err error) {
	if r.Header.Descr.Fortran {
		return 0, 0, fmt.Errorf("dataset: %s is Fortran-ordered, row-major required", path)
	}
	shape := r.Header.Descr.Shape
	if len(shape) != 2 {
		return 0, 0, fmt.Errorf("dataset: %s has %d-dimensional shape, want 2", path, len(shape))
	}
	return shape[0], shape[1], nil
}

func loadNPYVectors(path string) (Vectors, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: reading npy header of %s: %w", path, err)
	}
	rows, dim, err := npyShape(path, r)
	if err != nil {
		return nil, err
	}

	var flat []float32
	switch dtype := npyElemType(r); dtype {
	case "f4":
		if err := r.Read(&flat); err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
	case "f8":
		var wide []float64
		if err := r.Read(&wide); err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		flat = make([]float32, len(wide))
		for i, v := range wide {
			flat[i] = float32(v)
		}
	case "u1":
		var bytes []uint8
		if err := r.Read(&bytes); err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		flat = make([]float32, len(bytes))
		for i, v := range bytes {
			flat[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("dataset: %s has unsupported vector dtype %q", path, r.Header.Descr.Type)
	}

	if len(flat) != rows*dim {
		return nil, &ErrCorruptDataset{Path: path, Declared: int64(rows * dim), Actual: int64(len(flat))}
	}
	return &float32Matrix{data: flat, rows: rows, dim: dim}, nil
}

func loadNPYGroundTruth(path string) (*GroundTruth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: reading npy header of %s: %w", path, err)
	}
	q, k, err := npyShape(path, r)
	if err != nil {
		return nil, err
	}

	var ids []uint32
	switch dtype := npyElemType(r); dtype {
	case "u4":
		if err := r.Read(&ids); err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
	case "i4":
		var signed []int32
		if err := r.Read(&signed); err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		ids = make([]uint32, len(signed))
		for i, v := range signed {
			ids[i] = uint32(v)
		}
	case "i8":
		var wide []int64
		if err := r.Read(&wide); err != nil {
			return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
		}
		ids = make([]uint32, len(wide))
		for i, v := range wide {
			ids[i] = uint32(v)
		}
	default:
		return nil, fmt.Errorf("dataset: %s has unsupported ground-truth dtype %q", path, r.Header.Descr.Type)
	}

	if len(ids) != q*k {
		return nil, &ErrCorruptGroundTruth{Path: path, Declared: int64(q * k), Actual: int64(len(ids))}
	}
	return &GroundTruth{queries: q, k: k, ids: ids}, nil
}

// npyElemType strips the byte-order prefix from the npy dtype descriptor
// ("<f4" -> "f4"). Only little-endian and order-free descriptors are mapped;
// big-endian files report as unsupported.
func npyElemType(r *npyio.Reader) string {
	dtype := r.Header.Descr.Type
	if strings.HasPrefix(dtype, "<") || strings.HasPrefix(dtype, "|") {
		return dtype[1:]
	}
	if strings.HasPrefix(dtype, ">") {
		return dtype // unsupported; surfaces as the default case
	}
	return dtype
}
