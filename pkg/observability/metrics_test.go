package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestInitMetricsExposesCounters(t *testing.T) {
	provider, handler, err := InitMetrics(MetricsConfig{
		ServiceName: "ledgerd",
		Registry:    prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("InitMetrics: %v", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	counter, err := provider.Meter("test").Int64Counter("ledger_test_total")
	if err != nil {
		t.Fatalf("create counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "ledger_test_total") {
		t.Errorf("expected counter in scrape output, got:\n%s", body)
	}
}
