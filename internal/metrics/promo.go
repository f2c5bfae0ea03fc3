package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		promoEvaluationsTotal,
		promoCommitsTotal,
		promoCommitRetriesTotal,
		promoCommitDuration,
		promoCodesTotal,
		promoCodesGeneratedTotal,
	)
}

var (
	promoEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_code_evaluations_total",
			Help: "Promo code evaluations by result (eligible or rejection reason).",
		},
		[]string{"result"},
	)

	promoCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promo_code_commits_total",
			Help: "Promo code commit attempts by outcome.",
		},
		[]string{"outcome"}, // applied, conflict, rejected, error
	)

	promoCommitRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promo_code_commit_retries_total",
			Help: "Evaluate-then-commit cycles retried after a conflict.",
		},
	)

	promoCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "promo_code_redeem_duration_seconds",
			Help:    "End-to-end redeem latency including retries.",
			Buckets: prometheus.DefBuckets,
		},
	)

	promoCodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "promo_codes_total",
			Help: "Current number of promo codes by state.",
		},
		[]string{"state"}, // valid, inactive, scheduled, expired, exhausted
	)

	promoCodesGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promo_codes_generated_total",
			Help: "Promo codes created through batch generation.",
		},
	)
)

// IncPromoEvaluation 记录一次评估结果
func IncPromoEvaluation(result string) {
	if result == "" {
		result = "eligible"
	}
	promoEvaluationsTotal.WithLabelValues(result).Inc()
}

// IncPromoCommit 记录一次提交结果
func IncPromoCommit(outcome string) {
	promoCommitsTotal.WithLabelValues(outcome).Inc()
}

// IncPromoCommitRetry 记录一次重试
func IncPromoCommitRetry() {
	promoCommitRetriesTotal.Inc()
}

// ObserveRedeemDuration 记录兑换耗时
func ObserveRedeemDuration(d time.Duration) {
	promoCommitDuration.Observe(d.Seconds())
}

// SetPromoCodesTotal 刷新各状态数量
func SetPromoCodesTotal(counts map[string]int64) {
	for state, count := range counts {
		promoCodesTotal.WithLabelValues(state).Set(float64(count))
	}
}

// AddPromoCodesGenerated 累加批量生成数量
func AddPromoCodesGenerated(count int) {
	if count > 0 {
		promoCodesGeneratedTotal.Add(float64(count))
	}
}
