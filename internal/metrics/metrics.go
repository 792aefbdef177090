// Package metrics exposes prometheus counters for the resilience layer.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wandrr"

type Recorder struct {
	retryAttempts  *prometheus.CounterVec
	policyOutcomes *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	lessonSources  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		retryAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_failed_attempts_total",
			Help:      "Failed attempts of retried remote operations by operation and failure kind",
		}, []string{"operation", "kind"}),
		policyOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_outcomes_total",
			Help:      "Terminal degradation policy states by operation",
		}, []string{"operation", "state"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_cache_lookups_total",
			Help:      "User cache lookups by result",
		}, []string{"result"}),
		lessonSources: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lessons_generated_total",
			Help:      "Generated lessons by source (llm or fallback)",
		}, []string{"source"}),
	}
}

func (r *Recorder) RetryAttempt(operation, kind string) {
	if r == nil {
		return
	}
	r.retryAttempts.WithLabelValues(operation, kind).Inc()
}

func (r *Recorder) PolicyOutcome(operation, state string) {
	if r == nil {
		return
	}
	r.policyOutcomes.WithLabelValues(operation, state).Inc()
}

func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) LessonGenerated(source string) {
	if r == nil {
		return
	}
	r.lessonSources.WithLabelValues(source).Inc()
}
