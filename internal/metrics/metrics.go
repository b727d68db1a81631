// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// バックエンド呼び出しの結果ラベル。
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	// OutcomeDenied は行ポリシーによる拒否、または削除対象なし。
	OutcomeDenied = "denied"
)

// 掲示板のドメインイベント。
const (
	EventProfileCreated = "profile_created"
	EventVtuberAdded    = "vtuber_added"
	EventVtuberDeleted  = "vtuber_deleted"
	EventPostCreated    = "post_created"
	EventPostDeleted    = "post_deleted"
	EventLikeAdded      = "like_added"
	EventLikeRemoved    = "like_removed"
	EventCommentAdded   = "comment_added"
)

// MetricsCollector はメトリクス収集のインターフェース。
// バックエンドアダプター、掲示板サービス、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordBackendRequest(table, method, outcome string, duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordBoardEvent(event string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendRequests *prometheus.CounterVec
	backendLatency  *prometheus.HistogramVec
	httpStatus      *prometheus.CounterVec
	boardEvents     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vtboard_backend_requests_total",
			Help: "バックエンド呼び出しの合計数",
		}, []string{"table", "method", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vtboard_backend_latency_seconds",
			Help:    "バックエンド呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"table"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vtboard_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		boardEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vtboard_board_events_total",
			Help: "掲示板操作の成功数",
		}, []string{"event"}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.backendLatency,
		c.httpStatus,
		c.boardEvents,
	)

	return c
}

// RecordBackendRequest はバックエンド呼び出し1回分の結果とレイテンシを記録する。
func (c *Collector) RecordBackendRequest(table, method, outcome string, duration time.Duration) {
	c.backendRequests.WithLabelValues(table, method, outcome).Inc()
	c.backendLatency.WithLabelValues(table).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordBoardEvent は掲示板のドメインイベントを記録する。
func (c *Collector) RecordBoardEvent(event string) {
	c.boardEvents.WithLabelValues(event).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
