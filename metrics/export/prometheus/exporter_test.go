package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/skillswap/authguard/internal/metrics"
	"github.com/skillswap/authguard/metrics/export/internaldefs"
)

type fakeSource struct {
	snapshot metrics.Snapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() metrics.Snapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64              { return f.dropped }

func newSource() fakeSource {
	return fakeSource{
		snapshot: metrics.Snapshot{
			Counters: map[metrics.MetricID]uint64{
				metrics.MetricLoginSuccess:     3,
				metrics.MetricLoginRateLimited: 2,
			},
			Histograms: map[metrics.MetricID]metrics.Histogram{
				metrics.MetricLoginLatency: {
					Buckets: []uint64{1, 2, 0, 0, 0, 0, 0, 1},
					Sum:     1500 * time.Millisecond,
				},
			},
		},
		dropped: 4,
	}
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectorEmitsEveryDefinition(t *testing.T) {
	exp := NewExporter(newSource())
	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	if got := testutil.CollectAndCount(exp); got != want {
		t.Fatalf("expected %d metrics, got %d", want, got)
	}
}

func TestHandlerRendersValues(t *testing.T) {
	body := scrape(t, NewExporter(newSource()).Handler())

	for _, line := range []string{
		"authguard_login_success_total 3",
		"authguard_login_rate_limited_total 2",
		"authguard_login_failure_total 0",
		"authguard_audit_dropped_total 4",
		`authguard_login_latency_seconds_bucket{le="0.05"} 1`,
		`authguard_login_latency_seconds_bucket{le="0.1"} 3`,
		`authguard_login_latency_seconds_bucket{le="+Inf"} 4`,
		"authguard_login_latency_seconds_sum 1.5",
		"authguard_login_latency_seconds_count 4",
		"authguard_refresh_latency_seconds_count 0",
	} {
		if !strings.Contains(body, line) {
			t.Fatalf("expected %q in output:\n%s", line, body)
		}
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	exp := NewExporter(newSource())
	if err := exp.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := exp.Register(reg); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestLintClean(t *testing.T) {
	problems, err := testutil.CollectAndLint(NewExporter(newSource()))
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("unexpected lint problems: %+v", problems)
	}
}
