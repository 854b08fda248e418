package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the stream engine's Prometheus collectors.
type Metrics struct {
	RecordsTotal    prometheus.Counter
	ParseErrors     *prometheus.CounterVec
	MutualPairs     prometheus.Gauge
	ProxyCandidates prometheus.Gauge
	SnapshotsTotal  prometheus.Counter
}

// New creates the collector set.
func New() *Metrics {
	return &Metrics{
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traf_records_total",
			Help: "Capture log records received",
		}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "traf_parse_errors_total",
			Help: "Records with parse errors by kind",
		}, []string{"kind"}),
		MutualPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traf_mutual_pairs",
			Help: "Directional mutual-transfer registry entries at last snapshot",
		}),
		ProxyCandidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "traf_proxy_candidates",
			Help: "MACs with more than one bidirectional relationship at last snapshot",
		}),
		SnapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traf_snapshots_total",
			Help: "Report snapshots taken",
		}),
	}
}

// Register registers every collector with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.RecordsTotal,
		m.ParseErrors,
		m.MutualPairs,
		m.ProxyCandidates,
		m.SnapshotsTotal,
	)
}
