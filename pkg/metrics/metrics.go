// Package metrics はPrometheus形式のメトリクスを提供する。
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値。
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics はサービスが記録するカウンタ群。
// テストで独立したレジストリを使えるよう、グローバルには登録しない。
// カウンタを公開するのはHTTPサーバーのみで、Lambdaではnilを渡して記録を無効にする。
// Record系のメソッドはnilのレシーバでは何もしない。
type Metrics struct {
	registry *prometheus.Registry

	// Submissions は受付処理の結果ごとの件数。
	Submissions *prometheus.CounterVec
	// Notifications は通知メール送信の結果ごとの件数。
	Notifications *prometheus.CounterVec
	// SkippedEvents は処理対象外として読み飛ばした変更イベントの種類ごとの件数。
	SkippedEvents *prometheus.CounterVec
	// FailedBatches は再配信が必要になったバッチの件数。
	FailedBatches prometheus.Counter
}

// New は新しいレジストリにカウンタを登録して返す。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total number of contact submissions handled by intake.",
		}, []string{"result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_notifications_total",
			Help: "Total number of operator notification emails attempted.",
		}, []string{"result"}),
		SkippedEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_change_events_skipped_total",
			Help: "Total number of change events ignored by the dispatcher.",
		}, []string{"kind"}),
		FailedBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contact_change_batches_failed_total",
			Help: "Total number of change batches that must be redelivered.",
		}),
	}
	reg.MustRegister(
		m.Submissions,
		m.Notifications,
		m.SkippedEvents,
		m.FailedBatches,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler は /metrics エンドポイント用のGinハンドラを返す。
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Registry はメトリクスのレジストリを返す。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSubmission は受付処理の結果を記録する。
func (m *Metrics) RecordSubmission(result string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
}

// RecordNotification は通知メール送信の結果を記録する。
func (m *Metrics) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// RecordSkipped は読み飛ばした変更イベントの種類を記録する。
func (m *Metrics) RecordSkipped(kind string) {
	if m == nil {
		return
	}
	m.SkippedEvents.WithLabelValues(kind).Inc()
}

// RecordFailedBatch は再配信が必要になったバッチを記録する。
func (m *Metrics) RecordFailedBatch() {
	if m == nil {
		return
	}
	m.FailedBatches.Inc()
}
