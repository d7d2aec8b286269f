package blobstore

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
)

// Fetch materializes the named blob as a file under destDir and returns its
// path. An already present file is reused without touching the store, so a
// rerun with cached datasets never re-downloads them. The file is written to
// a temp name and renamed, so an interrupted fetch leaves no partial file
// behind under the final name.
func Fetch(ctx context.Context, store BlobStore, name string, destDir string) (string, error) {
	dest := filepath.Join(destDir, filepath.Base(name))
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(destDir, filepath.Base(name)+".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := download(ctx, store, name, tmp); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return "", err
	}
	tmpName = ""
	return dest, nil
}

func download(ctx context.Context, store BlobStore, name string, f *os.File) error {
	if dl, ok := store.(Downloader); ok {
		_, err := dl.Download(ctx, name, f)
		return err
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer blob.Close()

	w := bufio.NewWriterSize(f, 256*1024)
	if _, err := io.Copy(w, blob); err != nil {
		return err
	}
	return w.Flush()
}
