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
// ハンドラー層やサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordPollCreated()
	RecordVotesCast(count int)
	RecordPollsClosed(count int)
	RecordUserRegistered()
	RecordLoginFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	pollsCreated   prometheus.Counter
	votesCast      prometheus.Counter
	pollsClosed    prometheus.Counter
	usersTotal     prometheus.Counter
	loginFailures  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pollman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pollman_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		pollsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pollman_polls_created_total",
			Help: "作成された投票の合計数",
		}),
		votesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pollman_votes_cast_total",
			Help: "投じられた票の合計数",
		}),
		pollsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pollman_polls_closed_total",
			Help: "締め切られた投票の合計数",
		}),
		usersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pollman_users_registered_total",
			Help: "登録されたユーザーの合計数",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pollman_login_failures_total",
			Help: "ログイン失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.pollsCreated,
		c.votesCast,
		c.pollsClosed,
		c.usersTotal,
		c.loginFailures,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordPollCreated は投票の作成を記録する。
func (c *Collector) RecordPollCreated() {
	c.pollsCreated.Inc()
}

// RecordVotesCast は投じられた票数を記録する。
func (c *Collector) RecordVotesCast(count int) {
	c.votesCast.Add(float64(count))
}

// RecordPollsClosed は締め切られた投票数を記録する。
func (c *Collector) RecordPollsClosed(count int) {
	c.pollsClosed.Add(float64(count))
}

// RecordUserRegistered はユーザー登録を記録する。
func (c *Collector) RecordUserRegistered() {
	c.usersTotal.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailures.Inc()
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
