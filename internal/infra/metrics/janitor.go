package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerPrunedTotal,
		sessionsArchivedTotal,
	)
}

var (
	ledgerPrunedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "janitor_ledger_pruned_total",
			Help: "Processed-ledger rows removed by the retention sweep.",
		},
	)

	sessionsArchivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "janitor_sessions_archived_total",
			Help: "Chat sessions archived after the idle cutoff.",
		},
	)
)

func AddLedgerPruned(n int64) {
	ledgerPrunedTotal.Add(float64(n))
}

func AddSessionsArchived(n int64) {
	sessionsArchivedTotal.Add(float64(n))
}
