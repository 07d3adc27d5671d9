// Package monitoring exposes portfolio events as Prometheus metrics.
package monitoring

import (
	"net/http"

	"github.com/etnz/sentifolio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is a sentifolio.Observer that records trades, risk updates and
// persistence failures. Each Recorder has its own registry.
type Recorder struct {
	registry *prometheus.Registry

	tradesTotal    *prometheus.CounterVec
	tradeValue     *prometheus.HistogramVec
	tradeSentiment *prometheus.HistogramVec
	riskLevel      prometheus.Gauge
	sentimentEMA   prometheus.Gauge
	cash           prometheus.Gauge
	errorsTotal    *prometheus.CounterVec
}

var _ sentifolio.Observer = (*Recorder)(nil)

// NewRecorder creates a Recorder with all its metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentifolio_trades_total",
				Help: "Total number of trades executed",
			},
			[]string{"symbol", "action"},
		),
		tradeValue: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentifolio_trade_value",
				Help:    "Distribution of trade values",
				Buckets: prometheus.ExponentialBuckets(100, 4, 8),
			},
			[]string{"action"},
		),
		tradeSentiment: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sentifolio_trade_sentiment",
				Help:    "Sentiment score that motivated each trade",
				Buckets: prometheus.LinearBuckets(-1, 0.25, 9),
			},
			[]string{"action"},
		),
		riskLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentifolio_risk_level",
			Help: "Current risk level in [0,1]",
		}),
		sentimentEMA: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentifolio_sentiment_ema",
			Help: "Exponential moving average of sentiment scores",
		}),
		cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentifolio_cash",
			Help: "Unallocated cash after the last trade",
		}),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentifolio_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type"},
		),
	}
	r.registry.MustRegister(
		r.tradesTotal,
		r.tradeValue,
		r.tradeSentiment,
		r.riskLevel,
		r.sentimentEMA,
		r.cash,
		r.errorsTotal,
	)
	return r
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// TradeExecuted implements sentifolio.Observer.
func (r *Recorder) TradeExecuted(t sentifolio.Trade) {
	action := string(t.Action)
	r.tradesTotal.WithLabelValues(t.Symbol, action).Inc()
	r.tradeValue.WithLabelValues(action).Observe(t.Value().AsFloat())
	r.tradeSentiment.WithLabelValues(action).Observe(t.Sentiment)
}

// RiskUpdated implements sentifolio.Observer.
func (r *Recorder) RiskUpdated(st sentifolio.RiskState) {
	r.riskLevel.Set(st.RiskLevel)
	r.sentimentEMA.Set(st.SentimentEMA)
}

// PersistFailed implements sentifolio.Observer.
func (r *Recorder) PersistFailed(error) {
	r.errorsTotal.WithLabelValues("persist").Inc()
}

// RecordError counts an error of a given type outside of the portfolio,
// like a failed quote or sentiment analysis.
func (r *Recorder) RecordError(errorType string) {
	r.errorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateCash sets the cash gauge.
func (r *Recorder) UpdateCash(cash sentifolio.Money) {
	r.cash.Set(cash.AsFloat())
}
