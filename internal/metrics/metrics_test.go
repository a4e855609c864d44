package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAdapter(t *testing.T) {
	before := testutil.ToFloat64(AdapterRequestsTotal.WithLabelValues("xtream", "none", OutcomeOK))
	RecordAdapter("xtream", "", OutcomeOK)
	assert.Equal(t, before+1, testutil.ToFloat64(AdapterRequestsTotal.WithLabelValues("xtream", "none", OutcomeOK)))
}

func TestRecordImportItems(t *testing.T) {
	c := ImportItemsTotal.WithLabelValues("m3u", "skipped")
	before := testutil.ToFloat64(c)
	RecordImportItems("m3u", "skipped", 0)
	RecordImportItems("m3u", "skipped", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(c))
}

func TestRecordImportAndProxy(t *testing.T) {
	fail := ImportRunsTotal.WithLabelValues("epg", "failure")
	before := testutil.ToFloat64(fail)
	RecordImport("epg", false)
	assert.Equal(t, before+1, testutil.ToFloat64(fail))

	code := ProxyUpstreamTotal.WithLabelValues("404")
	before = testutil.ToFloat64(code)
	RecordProxyUpstream(404)
	assert.Equal(t, before+1, testutil.ToFloat64(code))
}
