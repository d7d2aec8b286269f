// Package blobstore abstracts the places benchmark datasets live: a local
// directory, an S3 bucket or any S3-compatible endpoint. Fetch materializes a
// remote blob as a local file so the dataset reader can memory-map it.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for reading immutable data blobs.
type BlobStore interface {
	// Open opens a blob for sequential reading.
	Open(ctx context.Context, name string) (Blob, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.Reader
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Downloader is an optional interface for stores that can write a blob
// directly into a file, typically with concurrent ranged reads.
type Downloader interface {
	Download(ctx context.Context, name string, w io.WriterAt) (int64, error)
}
