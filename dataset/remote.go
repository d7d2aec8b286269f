package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/annforge/annbench/blobstore"
)

// remoteName strips the scheme from "s3://"- or "minio://"-style paths and
// returns the blob name the configured store understands. Plain file paths
// pass through unchanged.
func remoteName(path string) (string, bool) {
	i := strings.Index(path, "://")
	if i < 0 {
		return path, false
	}
	return path[i+len("://"):], true
}

// resolveRemote rewrites schemed inputs to local files, fetching each one
// through the configured blob store into the cache directory. Fetch skips
// blobs already present in the cache, so repeated opens of the same dataset
// download nothing.
func resolveRemote(ctx context.Context, p Paths, o *options) (Paths, error) {
	for _, path := range []*string{&p.Train, &p.Queries, &p.GroundTruth} {
		name, remote := remoteName(*path)
		if !remote {
			continue
		}
		if o.store == nil {
			return p, fmt.Errorf("dataset: %s is remote but no blob store is configured", *path)
		}
		cacheDir := o.cacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(os.TempDir(), "annbench-datasets")
		}
		local, err := blobstore.Fetch(ctx, o.store, name, cacheDir)
		if err != nil {
			return p, fmt.Errorf("dataset: fetch %s: %w", *path, err)
		}
		*path = local
	}
	return p, nil
}
