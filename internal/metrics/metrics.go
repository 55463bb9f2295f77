// Package metrics はPrometheusメトリクスの収集と公開を提供する。
// 収集対象はバックエンドへの送信リクエストと、手元に保持している祝福一覧の状態。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// トランスポート層と状態コントローラから利用する。
type MetricsCollector interface {
	RecordRequest(route string, statusCode int, duration time.Duration)
	RecordRequestError(route string)
	RecordRateLimited(bucket string)
	RecordMutation(op string, success bool)
	SetWallSize(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requests       *prometheus.CounterVec
	requestErrors  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	rateLimited    *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	wallSize       prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishwall_requests_total",
			Help: "バックエンドへのリクエスト数（ルート・ステータスコード別）",
		}, []string{"route", "status_code"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishwall_request_errors_total",
			Help: "レスポンスを受け取れなかったリクエスト数",
		}, []string{"route"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wishwall_request_latency_seconds",
			Help:    "バックエンドへのリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishwall_rate_limited_total",
			Help: "クライアント側のレート制限で送信を止めた回数",
		}, []string{"bucket"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishwall_mutations_total",
			Help: "作成・いいね・削除の結果別の件数",
		}, []string{"op", "result"}),
		wallSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wishwall_wall_size",
			Help: "保持している祝福の件数",
		}),
	}

	reg.MustRegister(
		c.requests,
		c.requestErrors,
		c.requestLatency,
		c.rateLimited,
		c.mutations,
		c.wallSize,
	)

	return c
}

// RecordRequest はレスポンスを受け取ったリクエストを記録する。
func (c *Collector) RecordRequest(route string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRequestError は通信エラーを記録する。
func (c *Collector) RecordRequestError(route string) {
	c.requestErrors.WithLabelValues(route).Inc()
}

// RecordRateLimited はレート制限による送信拒否を記録する。
func (c *Collector) RecordRateLimited(bucket string) {
	c.rateLimited.WithLabelValues(bucket).Inc()
}

// RecordMutation は変更操作の結果を記録する。
func (c *Collector) RecordMutation(op string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.mutations.WithLabelValues(op, result).Inc()
}

// SetWallSize は保持している祝福の件数を記録する。
func (c *Collector) SetWallSize(count int) {
	c.wallSize.Set(float64(count))
}

// NopCollector は何も記録しないMetricsCollector。メトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordRequest(string, int, time.Duration) {}
func (NopCollector) RecordRequestError(string)                {}
func (NopCollector) RecordRateLimited(string)                 {}
func (NopCollector) RecordMutation(string, bool)              {}
func (NopCollector) SetWallSize(int)                          {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
