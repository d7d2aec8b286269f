// Package results persists benchmark measurements as a JSON document keyed by
// backend name. Every append re-reads the file, merges the new record and
// rewrites the document atomically, so a crashed or interrupted sweep never
// loses previously completed configurations.
package results

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/annforge/annbench/codec"
	"github.com/annforge/annbench/metrics"
)

// Document maps a backend name to the records measured for it, in append order.
type Document map[string][]metrics.Record

// Store reads and writes a results document at a fixed path.
// Paths ending in ".zst" are compressed transparently.
type Store struct {
	path   string
	codec  codec.Codec
	logger *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithCodec overrides the JSON codec used for the document.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// WithLogger sets the logger used to report recoverable store problems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewStore creates a store for the given path. The file does not need to
// exist yet; the first Append creates it.
func NewStore(path string, opts ...Option) *Store {
	s := &Store{
		path:   path,
		codec:  codec.Default,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the location of the underlying document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current document. A missing file yields an empty document.
// An unreadable or corrupt file is logged and also yields an empty document,
// so a damaged store costs prior results but never aborts a sweep.
func (s *Store) Load() (Document, error) {
	raw, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, nil
		}
		s.logger.Warn("results store unreadable, starting fresh",
			"path", s.path,
			"error", err,
		)
		return Document{}, nil
	}

	var doc Document
	if err := s.codec.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("results store corrupt, starting fresh",
			"path", s.path,
			"error", err,
		)
		return Document{}, nil
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Append merges one record into the document under the given backend name
// and rewrites the file.
func (s *Store) Append(backend string, rec metrics.Record) error {
	doc, err := s.Load()
	if err != nil {
		return err
	}
	doc[backend] = append(doc[backend], rec)
	return s.Save(doc)
}

// Save replaces the document on disk atomically.
func (s *Store) Save(doc Document) error {
	raw, err := s.codec.Marshal(doc)
	if err != nil {
		return err
	}
	return s.writeAtomic(raw)
}

func (s *Store) compressed() bool {
	return strings.HasSuffix(s.path, ".zst")
}

func (s *Store) read() ([]byte, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 256*1024)
	if s.compressed() {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	return io.ReadAll(r)
}

// writeAtomic writes to a temp file in the same directory, fsyncs and renames
// over the target so readers never observe a partially written document.
func (s *Store) writeAtomic(raw []byte) error {
	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	var w io.Writer = buf
	var enc *zstd.Encoder
	if s.compressed() {
		enc, err = zstd.NewWriter(buf)
		if err != nil {
			return err
		}
		w = enc
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return err
		}
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	tmpName = ""
	return nil
}
