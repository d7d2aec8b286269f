// Package metrics scores an index's search quality and performance:
// recall@k against a ground-truth set, throughput, and the per-query latency
// distribution.
//
// Queries are issued one at a time, sequentially, with wall-clock timing
// around each individual search. This measures single-query response
// latency, not batch throughput; per-query numbers are only meaningful when
// the backend's internal search parallelism is set to one thread, which is
// the caller's responsibility.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/stat"

	"github.com/annforge/annbench/dataset"
)

// ErrResultCountMismatch indicates a query returned other than k results,
// which signals a misconfigured backend. No partial score is produced.
type ErrResultCountMismatch struct {
	Query int
	Got   int
	Want  int
}

func (e *ErrResultCountMismatch) Error() string {
	return fmt.Sprintf("query %d returned %d results, want %d", e.Query, e.Got, e.Want)
}

// SearchFunc issues one query and returns exactly k distances and ids.
type SearchFunc func(query []float32, searchWidth, k int) (dists []float32, ids []uint32, err error)

type options struct {
	limiter *rate.Limiter
}

// Option configures Compute.
type Option func(*options)

// WithRateLimit paces query issuance to a target arrival rate. The wait
// happens outside the timed window, so per-query latency numbers are
// unaffected; only wall-clock spacing changes.
func WithRateLimit(l *rate.Limiter) Option {
	return func(o *options) { o.limiter = l }
}

// Compute scores the requested metrics over all queries and returns one
// Record with its SearchWidth and Values populated; the caller stamps the
// remaining sweep parameters.
//
// Only requested metrics are computed: unrequested percentiles never incur
// a sort, unrequested recall never touches ground truth.
func Compute(requested []Metric, search SearchFunc, queries dataset.Vectors, gt *dataset.GroundTruth, searchWidth, k int, opts ...Option) (*Record, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if k <= 0 {
		return nil, fmt.Errorf("metrics: k must be positive, got %d", k)
	}
	n := queries.Rows()
	if n == 0 {
		return nil, fmt.Errorf("metrics: no queries")
	}
	want := make(map[Metric]bool, len(requested))
	for _, m := range requested {
		want[m] = true
	}
	if want[Recall] {
		if gt == nil {
			return nil, fmt.Errorf("metrics: recall requested without ground truth")
		}
		if gt.Queries() != n {
			return nil, fmt.Errorf("metrics: %d queries but ground truth covers %d", n, gt.Queries())
		}
	}

	latencies := make([]time.Duration, n)
	var total time.Duration
	var recallSum float64

	for i := 0; i < n; i++ {
		if o.limiter != nil {
			if err := o.limiter.Wait(context.Background()); err != nil {
				return nil, err
			}
		}

		q := queries.Row(i)
		start := time.Now()
		_, ids, err := search(q, searchWidth, k)
		elapsed := time.Since(start)
		if err != nil {
			return nil, fmt.Errorf("metrics: query %d failed: %w", i, err)
		}
		if len(ids) != k {
			return nil, &ErrResultCountMismatch{Query: i, Got: len(ids), Want: k}
		}
		latencies[i] = elapsed
		total += elapsed

		if want[Recall] {
			truth := roaring.New()
			truth.AddMany(gt.IDs(i))
			hits := 0
			for _, id := range ids {
				if truth.Contains(id) {
					hits++
				}
			}
			// Per-query fraction, averaged uniformly over queries. A global
			// hit-count ratio would weight queries with uneven overlap
			// differently.
			recallSum += float64(hits) / float64(k)
		}
	}

	rec := &Record{SearchWidth: searchWidth, Values: make(map[Metric]float64, len(requested))}

	if want[Recall] {
		rec.Values[Recall] = recallSum / float64(n)
	}
	if want[QPS] {
		qps, err := throughput(n, total)
		if err != nil {
			return nil, err
		}
		rec.Values[QPS] = qps
	}
	if want[Latency] {
		rec.Values[Latency] = msOf(total) / float64(n)
	}

	if want[LatencyP95] || want[LatencyP99] || want[LatencyP999] {
		sorted := make([]float64, n)
		for i, d := range latencies {
			sorted[i] = msOf(d)
		}
		sort.Float64s(sorted)
		if want[LatencyP95] {
			rec.Values[LatencyP95] = stat.Quantile(0.95, stat.Empirical, sorted, nil)
		}
		if want[LatencyP99] {
			rec.Values[LatencyP99] = stat.Quantile(0.99, stat.Empirical, sorted, nil)
		}
		if want[LatencyP999] {
			rec.Values[LatencyP999] = stat.Quantile(0.999, stat.Empirical, sorted, nil)
		}
	}

	return rec, nil
}

// throughput rejects a zero total so qps can never become +Inf, which would
// not survive JSON encoding in the results store.
func throughput(n int, total time.Duration) (float64, error) {
	if total <= 0 {
		return 0, fmt.Errorf("metrics: zero total latency over %d queries; clock resolution too coarse", n)
	}
	return float64(n) / total.Seconds(), nil
}

func msOf(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
