package bcolz

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds optional instrumentation hooks. A nil Histogram field
// disables that measurement; callers that want observability pass in
// collectors registered with their own prometheus.Registerer.
type Metrics struct {
	// DecompressLatency records the wall time of each Chunk.Get the
	// CArray issues, whole-buffer and block-range alike.
	DecompressLatency prometheus.Histogram
	// CompressLatency records the wall time spent building a Chunk's
	// compressed buffer during append/flush.
	CompressLatency prometheus.Histogram
}

func (m *Metrics) observeDecompress(seconds float64) {
	if m == nil || m.DecompressLatency == nil {
		return
	}
	m.DecompressLatency.Observe(seconds)
}

func (m *Metrics) observeCompress(seconds float64) {
	if m == nil || m.CompressLatency == nil {
		return
	}
	m.CompressLatency.Observe(seconds)
}
