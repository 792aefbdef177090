package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RetryAttempt("login", "rate_limited")
	r.RetryAttempt("login", "rate_limited")
	r.PolicyOutcome("signup", "degraded_local")
	r.CacheLookup(true)
	r.CacheLookup(false)
	r.CacheLookup(false)
	r.LessonGenerated("fallback")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.retryAttempts.WithLabelValues("login", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.policyOutcomes.WithLabelValues("signup", "degraded_local")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lessonSources.WithLabelValues("fallback")))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RetryAttempt("login", "unclassified")
		r.PolicyOutcome("login", "failed_hard")
		r.CacheLookup(true)
		r.LessonGenerated("llm")
	})
}
