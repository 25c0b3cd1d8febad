package errorreporter

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxErrorsPerSession = 2
	r, _ := newTestReporter(t, cfg)

	r.ReportError("cart", errors.New("a"), KindLoad, nil)
	r.ReportError("cart", errors.New("a"), KindLoad, nil)
	r.ReportError("cart", errors.New("b"), KindTimeout, nil)
	r.ReportError("cart", errors.New("c"), KindTimeout, nil)

	collector := NewPrometheusCollector(r, "")
	expected := `
# HELP mfe_errors_reports Accepted error reports per module and severity
# TYPE mfe_errors_reports gauge
mfe_errors_reports{mfe="cart",severity="high"} 1
mfe_errors_reports{mfe="cart",severity="low"} 1
# HELP mfe_errors_throttled_total Reports suppressed by the duplicate throttle
# TYPE mfe_errors_throttled_total counter
mfe_errors_throttled_total 1
# HELP mfe_errors_dropped_total Reports dropped after the session cap was reached
# TYPE mfe_errors_dropped_total counter
mfe_errors_dropped_total 1
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected)))
	assert.Equal(t, 4, testutil.CollectAndCount(collector))
}
