package kvs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// kvsMetrics mirrors the teacher's walMetrics shape (promauto.With(reg)
// counters/gauges registered up front) but named for the kvs engine's own
// operations rather than a raft log's.
type kvsMetrics struct {
	appends           prometheus.Counter
	setOps            prometheus.Counter
	getOps            prometheus.Counter
	removeOps         prometheus.Counter
	bytesWritten      prometheus.Counter
	bytesRead         prometheus.Counter
	compactions       prometheus.Counter
	reclaimableBytes  prometheus.Gauge
	liveEpochs        prometheus.Gauge
	compactionSeconds prometheus.Histogram
}

func newKvsMetrics(reg prometheus.Registerer) *kvsMetrics {
	return &kvsMetrics{
		appends: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_appends_total",
			Help: "kvs_appends_total counts calls to the log writer's append, one per Set or Remove that reaches disk.",
		}),
		setOps: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_set_total",
			Help: "kvs_set_total counts successful Set operations.",
		}),
		getOps: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_get_total",
			Help: "kvs_get_total counts Get operations, hit or miss.",
		}),
		removeOps: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_remove_total",
			Help: "kvs_remove_total counts successful Remove operations.",
		}),
		bytesWritten: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_bytes_written_total",
			Help: "kvs_bytes_written_total counts encoded record bytes appended to epoch files.",
		}),
		bytesRead: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_bytes_read_total",
			Help: "kvs_bytes_read_total counts record bytes read back from epoch files.",
		}),
		compactions: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kvs_compactions_total",
			Help: "kvs_compactions_total counts completed compaction passes.",
		}),
		reclaimableBytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "kvs_reclaimable_bytes",
			Help: "kvs_reclaimable_bytes is the current count of bytes on disk but no longer reachable through the index.",
		}),
		liveEpochs: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "kvs_live_epochs",
			Help: "kvs_live_epochs is the number of epoch files currently on disk.",
		}),
		compactionSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "kvs_compaction_seconds",
			Help: "kvs_compaction_seconds observes the wall time of each compaction pass.",
		}),
	}
}
