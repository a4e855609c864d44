// Package metrics provides Prometheus metrics for the middleware adapters,
// importers and the HLS proxy. Labels stay low-cardinality: no usernames,
// MACs or stream names.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AdapterRequestsTotal counts protocol requests by adapter, action and outcome.
	AdapterRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamone_adapter_requests_total",
		Help: "Total protocol adapter requests, by adapter, action and outcome.",
	}, []string{"adapter", "action", "outcome"})

	// ImportRunsTotal counts import runs by kind and result.
	ImportRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamone_import_runs_total",
		Help: "Total import runs, by kind (m3u/epg) and result.",
	}, []string{"kind", "result"})

	// ImportItemsTotal counts imported items by kind and disposition.
	ImportItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamone_import_items_total",
		Help: "Total imported items, by kind and disposition (imported/updated/skipped/failed).",
	}, []string{"kind", "disposition"})

	// ProxyUpstreamTotal counts HLS proxy upstream responses by status code.
	ProxyUpstreamTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamone_proxy_upstream_total",
		Help: "Total HLS proxy upstream fetches, by status code (0 = transport error).",
	}, []string{"code"})
)

// Adapter outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeAuthFail = "auth_fail"
	OutcomeError    = "error"
)

// RecordAdapter counts one adapter request.
func RecordAdapter(adapter, action, outcome string) {
	if action == "" {
		action = "none"
	}
	AdapterRequestsTotal.WithLabelValues(adapter, action, outcome).Inc()
}

// RecordImport counts one import run.
func RecordImport(kind string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	ImportRunsTotal.WithLabelValues(kind, result).Inc()
}

// RecordImportItems adds n items of a disposition.
func RecordImportItems(kind, disposition string, n int) {
	if n <= 0 {
		return
	}
	ImportItemsTotal.WithLabelValues(kind, disposition).Add(float64(n))
}

// RecordProxyUpstream counts one proxy upstream response.
func RecordProxyUpstream(code int) {
	ProxyUpstreamTotal.WithLabelValues(strconv.Itoa(code)).Inc()
}
