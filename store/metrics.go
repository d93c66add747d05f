package store

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes store-level counters via prometheus/client_golang, the
// same library an execution-client database layer wires its collectors
// through. Metrics is nil by default; callers opt in by passing a
// registerer to NewMetrics.
type Metrics struct {
	commits      prometheus.Counter
	recoveries   prometheus.Counter
	compactions  prometheus.Counter
	bytesWritten prometheus.Counter
	bytesRead    prometheus.Counter
}

// NewMetrics constructs and registers a Metrics set under reg, namespaced
// "urkel_store".
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urkel_store", Name: "commits_total",
			Help: "Number of completed tree commits.",
		}),
		recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urkel_store", Name: "recoveries_total",
			Help: "Number of times Open recovered from a non-empty directory.",
		}),
		compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urkel_store", Name: "compactions_total",
			Help: "Number of completed compactions.",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urkel_store", Name: "bytes_written_total",
			Help: "Bytes appended to data files.",
		}),
		bytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "urkel_store", Name: "bytes_read_total",
			Help: "Bytes read back from data files.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.commits, m.recoveries, m.compactions, m.bytesWritten, m.bytesRead)
	}
	return m
}
