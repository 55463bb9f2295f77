package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric はGather結果から指定名のメトリクスファミリーを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue はメトリクスから指定ラベルの値を取り出す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordRequest_CountsByRouteAndStatus はルート・ステータス別にカウントされることを検証する。
func TestRecordRequest_CountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("list_wishes", 200, 10*time.Millisecond)
	c.RecordRequest("list_wishes", 200, 20*time.Millisecond)
	c.RecordRequest("delete_wish", 403, 5*time.Millisecond)

	mf := findMetric(t, reg, "wishwall_requests_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		route := labelValue(m, "route")
		status := labelValue(m, "status_code")
		val := m.GetCounter().GetValue()
		switch {
		case route == "list_wishes" && status == "200":
			if val != 2 {
				t.Errorf("list_wishes/200 = %v, want 2", val)
			}
		case route == "delete_wish" && status == "403":
			if val != 1 {
				t.Errorf("delete_wish/403 = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected labels: route=%s status=%s", route, status)
		}
	}

	latency := findMetric(t, reg, "wishwall_request_latency_seconds")
	var samples uint64
	for _, m := range latency.GetMetric() {
		samples += m.GetHistogram().GetSampleCount()
	}
	if samples != 3 {
		t.Errorf("latency sample count = %d, want 3", samples)
	}
}

// TestRecordRequestError_IncrementsCounter は通信エラーのカウンタが増加することを検証する。
func TestRecordRequestError_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestError("like_wish")

	mf := findMetric(t, reg, "wishwall_request_errors_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 1 {
		t.Errorf("request_errors_total = %v, want 1", val)
	}
}

// TestRecordMutation_SplitsByResult は成功・失敗が別系列で記録されることを検証する。
func TestRecordMutation_SplitsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMutation("like", true)
	c.RecordMutation("like", false)
	c.RecordMutation("like", false)

	mf := findMetric(t, reg, "wishwall_mutations_total")
	for _, m := range mf.GetMetric() {
		want := 1.0
		if labelValue(m, "result") == "failure" {
			want = 2
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Errorf("result=%s = %v, want %v", labelValue(m, "result"), got, want)
		}
	}
}

// TestSetWallSize_SetsGauge は保持件数ゲージが最後の値になることを検証する。
func TestSetWallSize_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetWallSize(5)
	c.SetWallSize(3)

	mf := findMetric(t, reg, "wishwall_wall_size")
	if val := mf.GetMetric()[0].GetGauge().GetValue(); val != 3 {
		t.Errorf("wall_size = %v, want 3", val)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequest("create_wish", 200, 100*time.Millisecond)
	c.RecordRequestError("create_wish")
	c.RecordRateLimited("create")
	c.RecordMutation("create", true)
	c.SetWallSize(1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, metric := range []string{
		"wishwall_requests_total",
		"wishwall_request_errors_total",
		"wishwall_request_latency_seconds",
		"wishwall_rate_limited_total",
		"wishwall_mutations_total",
		"wishwall_wall_size",
	} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリなら重複登録にならないことを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	NewCollector(prometheus.NewRegistry())
	NewCollector(prometheus.NewRegistry())
}

func TestNopCollector_DoesNothing(t *testing.T) {
	var c MetricsCollector = NopCollector{}
	c.RecordRequest("x", 200, time.Second)
	c.RecordRequestError("x")
	c.RecordRateLimited("x")
	c.RecordMutation("x", true)
	c.SetWallSize(1)
}
