package metrics

import "encoding/json"

// Metric names a quality or performance measurement.
type Metric string

const (
	// Recall is the mean per-query fraction of true neighbors returned.
	Recall Metric = "recall"
	// QPS is queries per second under sequential issuance.
	QPS Metric = "qps"
	// Latency is the mean per-query latency in milliseconds.
	Latency Metric = "latency"
	// LatencyP95 is the 95th percentile per-query latency in milliseconds.
	LatencyP95 Metric = "latency_p95"
	// LatencyP99 is the 99th percentile per-query latency in milliseconds.
	LatencyP99 Metric = "latency_p99"
	// LatencyP999 is the 99.9th percentile per-query latency in milliseconds.
	LatencyP999 Metric = "latency_p999"
)

// AllMetrics lists every metric the engine can compute.
var AllMetrics = []Metric{Recall, QPS, Latency, LatencyP95, LatencyP99, LatencyP999}

// Record is one immutable measurement: the metric values produced by a
// single scoring call, tagged with the parameter combination that produced
// them. It marshals to a flat JSON object so the result store stays a plain
// mapping of backend name to measurement rows.
type Record struct {
	RunID             string
	NodeLinks         int
	ConstructionWidth int
	SearchWidth       int
	DistanceKind      string
	Values            map[Metric]float64
}

// MarshalJSON flattens parameters and metric values into one object.
func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Values)+5)
	if r.RunID != "" {
		flat["run_id"] = r.RunID
	}
	flat["node_links"] = r.NodeLinks
	flat["ef_construction"] = r.ConstructionWidth
	flat["ef_search"] = r.SearchWidth
	flat["distance_type"] = r.DistanceKind
	for m, v := range r.Values {
		flat[string(m)] = v
	}
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON: known parameter keys populate the
// tagged fields, every other numeric key becomes a metric value.
func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.Values = make(map[Metric]float64)
	for k, v := range flat {
		switch k {
		case "run_id":
			r.RunID, _ = v.(string)
		case "distance_type":
			r.DistanceKind, _ = v.(string)
		case "node_links":
			r.NodeLinks = asInt(v)
		case "ef_construction":
			r.ConstructionWidth = asInt(v)
		case "ef_search":
			r.SearchWidth = asInt(v)
		default:
			if f, ok := v.(float64); ok {
				r.Values[Metric(k)] = f
			}
		}
	}
	return nil
}

func asInt(v any) int {
	f, _ := v.(float64)
	return int(f)
}
