package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandlerExposesCounters(t *testing.T) {
	PriceLookups.WithLabelValues("cache").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "cryptovault_market_price_lookups_total") {
		t.Fatalf("expected price lookup counter in output")
	}
}

func TestAlertsFiredCounter(t *testing.T) {
	before := testutil.ToFloat64(AlertsFired)
	AlertsFired.Inc()
	if got := testutil.ToFloat64(AlertsFired); got != before+1 {
		t.Fatalf("expected %v, got %v", before+1, got)
	}
}
