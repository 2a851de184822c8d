// Package metrics exports the support desk counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "supportdesk"

var (
	// MessagesAppended counts committed messages by payload kind.
	MessagesAppended = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_appended_total",
		Help:      "Messages committed to a thread, by payload kind.",
	}, []string{"kind"})

	// SupportThreadsServed counts support thread resolutions for end users.
	SupportThreadsServed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "support_threads_served_total",
		Help:      "Support thread lookups served to end users.",
	})

	// RejectedWrites counts writes refused for a caller error, by error code.
	RejectedWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_writes_total",
		Help:      "Writes rejected because of caller input, by error code.",
	}, []string{"code"})

	// StorageErrors counts operations that failed with storage unavailable.
	StorageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_errors_total",
		Help:      "Operations that failed because storage was unavailable, by operation.",
	}, []string{"op"})

	// DegradedReads counts reads answered with an empty result after a storage failure.
	DegradedReads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "degraded_reads_total",
		Help:      "Reads answered empty because storage was unavailable, by operation.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(MessagesAppended, SupportThreadsServed, RejectedWrites, StorageErrors, DegradedReads)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
