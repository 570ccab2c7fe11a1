// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイ層とインポーターから利用する。
type MetricsCollector interface {
	RecordGatewaySuccess(operation string)
	RecordGatewayError(operation string, code string)
	RecordBackendStatus(statusCode int)
	RecordBackendLatency(operation string, duration time.Duration)
	RecordArticlesImported(count int)
	RecordImportFailure(reason string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	gatewaySuccess   *prometheus.CounterVec
	gatewayError     *prometheus.CounterVec
	backendStatus    *prometheus.CounterVec
	backendLatency   *prometheus.HistogramVec
	articlesImported prometheus.Counter
	importFail       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gatewaySuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsline_gateway_success_total",
			Help: "ゲートウェイ操作成功の合計数（操作別）",
		}, []string{"operation"}),
		gatewayError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsline_gateway_error_total",
			Help: "ゲートウェイ操作エラーの合計数（操作・エラーコード別）",
		}, []string{"operation", "code"}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsline_backend_status_total",
			Help: "バックエンドAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsline_backend_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		articlesImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsline_articles_imported_total",
			Help: "インポートされた記事の合計数",
		}),
		importFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsline_import_fail_total",
			Help: "インポート失敗の合計数（理由別）",
		}, []string{"reason"}),
	}

	reg.MustRegister(
		c.gatewaySuccess,
		c.gatewayError,
		c.backendStatus,
		c.backendLatency,
		c.articlesImported,
		c.importFail,
	)

	return c
}

// RecordGatewaySuccess はゲートウェイ操作の成功を記録する。
func (c *Collector) RecordGatewaySuccess(operation string) {
	c.gatewaySuccess.WithLabelValues(operation).Inc()
}

// RecordGatewayError はゲートウェイ操作のエラーをコード別に記録する。
func (c *Collector) RecordGatewayError(operation string, code string) {
	c.gatewayError.WithLabelValues(operation, code).Inc()
}

// RecordBackendStatus はバックエンドAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordBackendStatus(statusCode int) {
	c.backendStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordBackendLatency はバックエンドAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordBackendLatency(operation string, duration time.Duration) {
	c.backendLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordArticlesImported はインポートされた記事数を記録する。
func (c *Collector) RecordArticlesImported(count int) {
	c.articlesImported.Add(float64(count))
}

// RecordImportFailure はインポート失敗を理由別に記録する。
func (c *Collector) RecordImportFailure(reason string) {
	c.importFail.WithLabelValues(reason).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
