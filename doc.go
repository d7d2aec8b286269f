// Package annbench measures the recall/throughput trade-off of approximate
// nearest neighbor indexes over large binary vector datasets.
//
// A sweep builds one index per (node links, construction width) pair and
// scores every configured search width against it, computing recall@k, QPS
// and latency percentiles from sequential per-query timings. Every measured
// configuration is appended to a crash-safe JSON results store as soon as it
// completes, so interrupted sweeps resume without repeating finished work.
//
// # Quick Start
//
//	bench, _ := dataset.Open(dataset.Paths{
//	    Train:       "base.fbin",
//	    Queries:     "queries.fbin",
//	    GroundTruth: "gt.bin",
//	})
//	defer bench.Close()
//
//	err := annbench.RunSweep(ctx, annbench.SweepConfig{
//	    Backend:            backend.NewHNSW(graph),
//	    Train:              bench.Train,
//	    Queries:            bench.Queries,
//	    GroundTruth:        bench.GroundTruth,
//	    DistanceKind:       backend.DistanceInnerProduct,
//	    NodeLinks:          []int{16, 32},
//	    ConstructionWidths: []int{100, 200},
//	    SearchWidths:       []int{10, 50, 100, 200},
//	    K:                  100,
//	    Store:              results.NewStore("results.json"),
//	})
//
// # Key Features
//
//   - Zero-copy memory-mapped dataset access (fbin/u8bin/ground-truth binary
//     formats, plus an npy fast path)
//   - Uniform adapter over heterogeneous backends with capability reporting
//   - Read-merge-write results persistence that survives crashes and
//     corrupted files
//   - Dataset fetching from S3 and S3-compatible object stores
package annbench
