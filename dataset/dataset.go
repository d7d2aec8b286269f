// Package dataset loads ANN benchmark inputs from their on-disk formats.
//
// Two layouts are supported:
//
//   - Raw vector binary: [uint32 count][uint32 dim] followed by a flat
//     row-major payload of count*dim elements. Element type is float32 for
//     ".fbin" files and uint8 otherwise (".u8bin").
//   - Ground truth binary: [uint32 queryCount][uint32 k], a queryCount*k
//     block of uint32 neighbor ids, then a queryCount*k block of float32
//     distances.
//
// Files are memory-mapped and exposed as zero-copy views; multi-gigabyte
// inputs are never materialized wholesale. When all three inputs carry the
// ".npy" extension the reader delegates to the npy loader instead and skips
// binary-header parsing entirely.
package dataset

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/annforge/annbench/blobstore"
	"github.com/annforge/annbench/internal/mmap"
)

const headerSize = 8 // two uint32: count/queryCount, dim/k

// ElemKind identifies the element type of a raw vector file.
type ElemKind int

const (
	// ElemFloat32 marks 4-byte little-endian float elements.
	ElemFloat32 ElemKind = iota
	// ElemUint8 marks 1-byte unsigned integer elements.
	ElemUint8
)

// Size returns the element size in bytes.
func (k ElemKind) Size() int {
	if k == ElemUint8 {
		return 1
	}
	return 4
}

func kindForPath(path string) ElemKind {
	if strings.HasSuffix(path, ".fbin") {
		return ElemFloat32
	}
	return ElemUint8
}

// Paths names the three benchmark input files.
type Paths struct {
	Train       string
	Queries     string
	GroundTruth string
}

type options struct {
	chunkRows int
	trainKind *ElemKind
	queryKind *ElemKind
	store     blobstore.BlobStore
	cacheDir  string
}

// Option configures Open.
type Option func(*options)

// WithChunk limits the train dataset to its first rows vectors. Only the
// byte prefix covering those rows is mapped, so a partial dataset can be
// benchmarked without touching the full file. Raw-binary path only.
func WithChunk(rows int) Option {
	return func(o *options) { o.chunkRows = rows }
}

// WithTrainKind overrides the element type inferred from the train file's
// extension.
func WithTrainKind(k ElemKind) Option {
	return func(o *options) { o.trainKind = &k }
}

// WithQueryKind overrides the element type inferred from the query file's
// extension.
func WithQueryKind(k ElemKind) Option {
	return func(o *options) { o.queryKind = &k }
}

// WithBlobStore configures the store used to fetch schemed paths
// ("s3://...", "minio://..."). The scheme is stripped and the remainder is
// passed to the store as the blob name.
func WithBlobStore(s blobstore.BlobStore) Option {
	return func(o *options) { o.store = s }
}

// WithCacheDir sets the directory fetched blobs are materialized into.
// Defaults to an "annbench-datasets" directory under the system temp dir.
func WithCacheDir(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

// Benchmark bundles the three loaded views. Close releases all mappings;
// every view becomes invalid afterwards.
type Benchmark struct {
	Train       Vectors
	Queries     Vectors
	GroundTruth *GroundTruth

	closers []io.Closer
}

// Close unmaps all files backing the views.
func (b *Benchmark) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

// Open loads the train vectors, query vectors, and ground truth named by p.
//
// The query dimension is taken from the train file's header, never re-read
// from the query file, which does not declare it reliably. The query count
// comes from the ground-truth header.
//
// Schemed paths ("s3://bucket/train.fbin") are fetched once through the
// blob store configured with WithBlobStore into a local cache directory,
// then mapped like any local file.
func Open(p Paths, opts ...Option) (*Benchmark, error) {
	return OpenContext(context.Background(), p, opts...)
}

// OpenContext is Open with a context governing remote fetches.
func OpenContext(ctx context.Context, p Paths, opts ...Option) (*Benchmark, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p, err := resolveRemote(ctx, p, &o)
	if err != nil {
		return nil, err
	}

	for _, path := range []string{p.Train, p.Queries, p.GroundTruth} {
		if _, err := os.Stat(path); err != nil {
			return nil, &ErrMissingInput{Path: path}
		}
	}

	if strings.HasSuffix(p.Train, ".npy") &&
		strings.HasSuffix(p.Queries, ".npy") &&
		strings.HasSuffix(p.GroundTruth, ".npy") {
		return openNPY(p)
	}

	b := &Benchmark{}
	ok := false
	defer func() {
		if !ok {
			_ = b.Close()
		}
	}()

	trainKind := kindForPath(p.Train)
	if o.trainKind != nil {
		trainKind = *o.trainKind
	}
	train, dim, err := openVectorFile(p.Train, trainKind, o.chunkRows, b)
	if err != nil {
		return nil, err
	}
	b.Train = train

	gt, err := openGroundTruthFile(p.GroundTruth, b)
	if err != nil {
		return nil, err
	}
	b.GroundTruth = gt

	queryKind := kindForPath(p.Queries)
	if o.queryKind != nil {
		queryKind = *o.queryKind
	}
	queries, err := openQueryFile(p.Queries, queryKind, gt.Queries(), dim, b)
	if err != nil {
		return nil, err
	}
	b.Queries = queries

	ok = true
	return b, nil
}

// readHeader reads the two-uint32 header without mapping the file.
func readHeader(path string) (uint32, uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var buf [headerSize]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, 0, fmt.Errorf("dataset: short header in %s: %w", path, err)
	}
	return binary.LittleEndian.Uint32(buf[0:4]), binary.LittleEndian.Uint32(buf[4:8]), nil
}

func openVectorFile(path string, kind ElemKind, chunkRows int, b *Benchmark) (Vectors, int, error) {
	count32, dim32, err := readHeader(path)
	if err != nil {
		return nil, 0, err
	}
	count, dim := int(count32), int(dim32)
	if dim <= 0 {
		return nil, 0, fmt.Errorf("dataset: %s declares dimension %d", path, dim)
	}

	rows := count
	var m *mmap.Mapping
	if chunkRows > 0 {
		if chunkRows > count {
			return nil, 0, fmt.Errorf("dataset: chunk of %d rows exceeds %s's %d declared rows", chunkRows, path, count)
		}
		rows = chunkRows
		prefix := int64(headerSize) + int64(rows)*int64(dim)*int64(kind.Size())
		m, err = mmap.OpenPrefix(path, prefix)
	} else {
		m, err = mmap.Open(path)
		if err == nil {
			declared := int64(headerSize) + int64(count)*int64(dim)*int64(kind.Size())
			if int64(m.Len()) != declared {
				actual := int64(m.Len())
				_ = m.Close()
				return nil, 0, &ErrCorruptDataset{Path: path, Declared: declared, Actual: actual}
			}
		}
	}
	if err != nil {
		return nil, 0, err
	}
	b.closers = append(b.closers, m)

	v, err := matrixView(m, rows, dim, kind)
	if err != nil {
		return nil, 0, err
	}
	return v, dim, nil
}

func openQueryFile(path string, kind ElemKind, rows, dim int, b *Benchmark) (Vectors, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	declared := int64(headerSize) + int64(rows)*int64(dim)*int64(kind.Size())
	if int64(m.Len()) != declared {
		actual := int64(m.Len())
		_ = m.Close()
		return nil, &ErrCorruptDataset{Path: path, Declared: declared, Actual: actual}
	}
	b.closers = append(b.closers, m)
	return matrixView(m, rows, dim, kind)
}

func matrixView(m *mmap.Mapping, rows, dim int, kind ElemKind) (Vectors, error) {
	region, err := m.Region(headerSize, rows*dim*kind.Size())
	if err != nil {
		return nil, err
	}
	if kind == ElemUint8 {
		return &uint8Matrix{data: region.Bytes(), rows: rows, dim: dim}, nil
	}
	flat, err := region.Float32s()
	if err != nil {
		return nil, err
	}
	return &float32Matrix{data: flat, rows: rows, dim: dim}, nil
}

func openGroundTruthFile(path string, b *Benchmark) (*GroundTruth, error) {
	q32, k32, err := readHeader(path)
	if err != nil {
		return nil, err
	}
	q, k := int(q32), int(k32)

	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	blockBytes := int64(q) * int64(k) * 4
	declared := int64(headerSize) + 2*blockBytes
	if int64(m.Len()) != declared {
		actual := int64(m.Len())
		_ = m.Close()
		return nil, &ErrCorruptGroundTruth{Path: path, Declared: declared, Actual: actual}
	}
	b.closers = append(b.closers, m)

	idsOffset := headerSize
	distsOffset := headerSize + int(blockBytes)

	idsRegion, err := m.Region(idsOffset, int(blockBytes))
	if err != nil {
		return nil, err
	}
	ids, err := idsRegion.Uint32s()
	if err != nil {
		return nil, err
	}

	distsRegion, err := m.Region(distsOffset, int(blockBytes))
	if err != nil {
		return nil, err
	}
	dists, err := distsRegion.Float32s()
	if err != nil {
		return nil, err
	}

	return &GroundTruth{
		queries:     q,
		k:           k,
		ids:         ids,
		dists:       dists,
		idsOffset:   idsOffset,
		distsOffset: distsOffset,
	}, nil
}
