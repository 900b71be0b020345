// Package metrics holds the Prometheus collectors for the card layer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync outcomes used as the "result" label.
const (
	SyncOK          = "ok"
	SyncFailed      = "failed"
	SyncTimeout     = "timeout"
	SyncRejected    = "rejected"
	SyncUnavailable = "unavailable"
)

var (
	localSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardsync_local_saves_total",
		Help: "Local card saves by outcome.",
	}, []string{"result"})

	remoteSyncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardsync_remote_syncs_total",
		Help: "Remote sync attempts by outcome.",
	}, []string{"result"})

	remoteSyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cardsync_remote_sync_duration_seconds",
		Help:    "Histogram of remote sync latencies.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	consolidatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardsync_consolidated_records_total",
		Help: "Records moved from legacy locations into the canonical store.",
	})

	storageFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cardsync_storage_faults_total",
		Help: "Fail-soft storage errors by operation.",
	}, []string{"operation"})
)

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func LocalSave(ok bool) {
	if ok {
		localSavesTotal.WithLabelValues("ok").Inc()
		return
	}
	localSavesTotal.WithLabelValues("failed").Inc()
}

// ObserveSync records one remote sync attempt that started at start.
func ObserveSync(result string, start time.Time) {
	remoteSyncsTotal.WithLabelValues(result).Inc()
	remoteSyncDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

func Consolidated(n int) {
	if n > 0 {
		consolidatedTotal.Add(float64(n))
	}
}

func StorageFault(operation string) {
	storageFaultsTotal.WithLabelValues(operation).Inc()
}
