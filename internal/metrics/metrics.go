// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 保存済みデザイン操作の結果ラベル
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordSavedOperation(op, outcome string, duration time.Duration)
	RecordCatalogCreated(kind string)
	RecordDuplicatesRemoved(count int64)
	RecordSessionsExpired(count int64)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	savedOps          *prometheus.CounterVec
	savedLatency      *prometheus.HistogramVec
	catalogCreated    *prometheus.CounterVec
	duplicatesRemoved prometheus.Counter
	sessionsExpired   prometheus.Counter
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		savedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_saved_design_operations_total",
			Help: "保存済みデザイン操作の回数（操作種別・結果別）",
		}, []string{"op", "outcome"}),
		savedLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_saved_design_operation_seconds",
			Help:    "保存済みデザイン操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		catalogCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_catalog_created_total",
			Help: "ユーザーが登録したカタログ商品の数",
		}, []string{"kind"}),
		duplicatesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_saved_design_duplicates_removed_total",
			Help: "重複解消ジョブが削除した保存済みデザインの数",
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_sessions_expired_total",
			Help: "クリーンアップジョブが削除した期限切れセッションの数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.savedOps,
		c.savedLatency,
		c.catalogCreated,
		c.duplicatesRemoved,
		c.sessionsExpired,
		c.httpStatus,
	)

	return c
}

// RecordSavedOperation は保存済みデザイン操作の結果とレイテンシを記録する。
func (c *Collector) RecordSavedOperation(op, outcome string, duration time.Duration) {
	c.savedOps.WithLabelValues(op, outcome).Inc()
	c.savedLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordCatalogCreated はカタログ商品の登録を記録する。kindはdesignまたはgarment。
func (c *Collector) RecordCatalogCreated(kind string) {
	c.catalogCreated.WithLabelValues(kind).Inc()
}

// RecordDuplicatesRemoved は重複解消で削除した件数を記録する。
func (c *Collector) RecordDuplicatesRemoved(count int64) {
	c.duplicatesRemoved.Add(float64(count))
}

// RecordSessionsExpired は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsExpired(count int64) {
	c.sessionsExpired.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector。テストやCLIで使う。
type NopCollector struct{}

func (NopCollector) RecordSavedOperation(string, string, time.Duration) {}

func (NopCollector) RecordCatalogCreated(string) {}

func (NopCollector) RecordDuplicatesRemoved(int64) {}

func (NopCollector) RecordSessionsExpired(int64) {}

func (NopCollector) RecordHTTPStatus(int) {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
