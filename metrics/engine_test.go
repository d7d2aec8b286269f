package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/annforge/annbench/dataset"
)

// gtSearch returns each query's ground-truth ids verbatim, emulating a
// backend with perfect recall.
func gtSearch(gt *dataset.GroundTruth) SearchFunc {
	i := 0
	return func(query []float32, searchWidth, k int) ([]float32, []uint32, error) {
		time.Sleep(50 * time.Microsecond)
		ids := append([]uint32(nil), gt.IDs(i)...)
		i++
		return make([]float32, k), ids[:k], nil
	}
}

func fixture(q, k int) (dataset.Vectors, *dataset.GroundTruth) {
	queries := make([][]float32, q)
	ids := make([][]uint32, q)
	dists := make([][]float32, q)
	for i := range queries {
		queries[i] = []float32{float32(i), float32(i)}
		row := make([]uint32, k)
		for j := range row {
			row[j] = uint32(i*k + j)
		}
		ids[i] = row
		dists[i] = make([]float32, k)
	}
	return dataset.FromSlice(queries), dataset.FromNeighbors(ids, dists)
}

func TestComputePerfectRecall(t *testing.T) {
	queries, gt := fixture(10, 5)

	rec, err := Compute(AllMetrics, gtSearch(gt), queries, gt, 50, 5)
	require.NoError(t, err)

	assert.Equal(t, 1.0, rec.Values[Recall])
	assert.Equal(t, 50, rec.SearchWidth)
	assert.Greater(t, rec.Values[QPS], 0.0)
	assert.Greater(t, rec.Values[Latency], 0.0)
	assert.GreaterOrEqual(t, rec.Values[LatencyP999], rec.Values[LatencyP95])
}

func TestComputePartialRecall(t *testing.T) {
	queries, gt := fixture(4, 4)

	// Return two true neighbors and two misses per query.
	var qi int
	search := func(query []float32, searchWidth, k int) ([]float32, []uint32, error) {
		truth := gt.IDs(qi)
		qi++
		ids := []uint32{truth[0], truth[1], 1 << 30, 1<<30 + 1}
		return make([]float32, k), ids, nil
	}

	rec, err := Compute([]Metric{Recall}, search, queries, gt, 10, 4)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rec.Values[Recall], 1e-12)
	assert.GreaterOrEqual(t, rec.Values[Recall], 0.0)
	assert.LessOrEqual(t, rec.Values[Recall], 1.0)
}

func TestComputeThroughputLatencyConsistency(t *testing.T) {
	queries, gt := fixture(20, 3)

	rec, err := Compute([]Metric{QPS, Latency}, gtSearch(gt), queries, gt, 10, 3)
	require.NoError(t, err)

	// qps and mean latency are inverses of the same totals.
	meanSeconds := rec.Values[Latency] / 1000.0
	assert.InEpsilon(t, 1.0, rec.Values[QPS]*meanSeconds, 1e-9)
}

func TestComputeResultCountMismatch(t *testing.T) {
	queries, gt := fixture(3, 4)

	search := func(query []float32, searchWidth, k int) ([]float32, []uint32, error) {
		return nil, []uint32{1, 2}, nil // only 2 of the 4 requested
	}

	_, err := Compute([]Metric{Recall}, search, queries, gt, 10, 4)
	var mismatch *ErrResultCountMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 2, mismatch.Got)
	assert.Equal(t, 4, mismatch.Want)
}

func TestComputeOnlyRequestedMetrics(t *testing.T) {
	queries, gt := fixture(5, 2)

	rec, err := Compute([]Metric{QPS}, gtSearch(gt), queries, gt, 10, 2)
	require.NoError(t, err)
	assert.Len(t, rec.Values, 1)
	assert.Contains(t, rec.Values, QPS)
	assert.NotContains(t, rec.Values, LatencyP95)
	assert.NotContains(t, rec.Values, Recall)
}

func TestComputeValidation(t *testing.T) {
	queries, gt := fixture(5, 2)

	_, err := Compute([]Metric{Recall}, gtSearch(gt), queries, gt, 10, 0)
	assert.Error(t, err, "non-positive k")

	short, _ := fixture(3, 2)
	_, err = Compute([]Metric{Recall}, gtSearch(gt), short, gt, 10, 2)
	assert.Error(t, err, "query/ground-truth count mismatch")

	_, err = Compute([]Metric{Recall}, gtSearch(gt), queries, nil, 10, 2)
	assert.Error(t, err, "recall without ground truth")
}

func TestThroughputRejectsZeroTotal(t *testing.T) {
	_, err := throughput(5, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero total latency")

	qps, err := throughput(2, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2.0, qps)
}

func TestComputeWithRateLimit(t *testing.T) {
	queries, gt := fixture(5, 2)

	rec, err := Compute([]Metric{QPS}, gtSearch(gt), queries, gt, 10, 2,
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)))
	require.NoError(t, err)
	assert.Greater(t, rec.Values[QPS], 0.0)
}
