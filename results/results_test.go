package results

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annforge/annbench/metrics"
)

func testRecord(searchWidth int, recall float64) metrics.Record {
	return metrics.Record{
		NodeLinks:         16,
		ConstructionWidth: 100,
		SearchWidth:       searchWidth,
		DistanceKind:      "l2",
		Values: map[metrics.Metric]float64{
			metrics.Recall: recall,
			metrics.QPS:    1000,
		},
	}
}

func TestStoreAppendLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	s := NewStore(path)

	require.NoError(t, s.Append("hnsw", testRecord(10, 0.9)))
	require.NoError(t, s.Append("hnsw", testRecord(20, 0.95)))
	require.NoError(t, s.Append("flat", testRecord(10, 0.92)))

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc["hnsw"], 2)
	require.Len(t, doc["flat"], 1)
	assert.Equal(t, 0.95, doc["hnsw"][1].Values[metrics.Recall])
	assert.Equal(t, 20, doc["hnsw"][1].SearchWidth)
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "absent.json"))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestStoreRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewStore(path)
	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc, "corrupt store yields an empty document")

	// Appending over the corrupt file replaces it with a valid document.
	require.NoError(t, s.Append("hnsw", testRecord(10, 0.9)))
	doc, err = s.Load()
	require.NoError(t, err)
	require.Len(t, doc["hnsw"], 1)
}

func TestStoreSurvivesPartialWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	s := NewStore(path)
	require.NoError(t, s.Append("hnsw", testRecord(10, 0.9)))

	// Truncate mid-document as a crashed writer would leave it.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw[:len(raw)/2], 0644))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestStoreZstdRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json.zst")
	s := NewStore(path)

	require.NoError(t, s.Append("hnsw", testRecord(40, 0.99)))
	require.NoError(t, s.Append("hnsw", testRecord(80, 0.999)))

	doc, err := s.Load()
	require.NoError(t, err)
	require.Len(t, doc["hnsw"], 2)
	assert.Equal(t, 0.999, doc["hnsw"][1].Values[metrics.Recall])

	// The bytes on disk must not be plain JSON.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, byte('{'), raw[0])
}

func TestStoreSaveReplacesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	s := NewStore(path)
	require.NoError(t, s.Append("hnsw", testRecord(10, 0.9)))

	require.NoError(t, s.Save(Document{"flat": {testRecord(20, 0.8)}}))

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, doc["hnsw"])
	require.Len(t, doc["flat"], 1)
}
