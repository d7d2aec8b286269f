package dataset

// Vectors is a read-only, row-major view over fixed-dimension vectors.
//
// Implementations backed by uint8 files widen rows into an internal scratch
// buffer: the returned slice is valid only until the next Row call and the
// view is not safe for concurrent use. Float32-backed views return zero-copy
// slices into the mapping and may be read concurrently.
type Vectors interface {
	Rows() int
	Dim() int
	Row(i int) []float32
}

// float32Matrix is a zero-copy view over a flat row-major float32 buffer,
// typically aliasing a memory mapping.
type float32Matrix struct {
	data []float32
	rows int
	dim  int
}

func (m *float32Matrix) Rows() int { return m.rows }
func (m *float32Matrix) Dim() int  { return m.dim }

func (m *float32Matrix) Row(i int) []float32 {
	off := i * m.dim
	return m.data[off : off+m.dim : off+m.dim]
}

// uint8Matrix widens uint8 rows to float32 on access.
type uint8Matrix struct {
	data    []byte
	rows    int
	dim     int
	scratch []float32
}

func (m *uint8Matrix) Rows() int { return m.rows }
func (m *uint8Matrix) Dim() int  { return m.dim }

func (m *uint8Matrix) Row(i int) []float32 {
	if m.scratch == nil {
		m.scratch = make([]float32, m.dim)
	}
	off := i * m.dim
	for j, b := range m.data[off : off+m.dim] {
		m.scratch[j] = float32(b)
	}
	return m.scratch
}

// FromSlice wraps pre-materialized vectors in a Vectors view.
// All rows must share the same dimension.
func FromSlice(vecs [][]float32) Vectors {
	dim := 0
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	return &sliceVectors{vecs: vecs, dim: dim}
}

type sliceVectors struct {
	vecs [][]float32
	dim  int
}

func (s *sliceVectors) Rows() int          { return len(s.vecs) }
func (s *sliceVectors) Dim() int           { return s.dim }
func (s *sliceVectors) Row(i int) []float32 { return s.vecs[i] }
