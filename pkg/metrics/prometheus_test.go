package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepress/internal/contracts"
)

// counterValue sums a counter family, optionally filtered by one label pair
func counterValue(t *testing.T, r *Recorder, name, label, value string) float64 {
	t.Helper()

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if label != "" && !hasLabel(m, label, value) {
				continue
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestRecorder_Directive(t *testing.T) {
	r := New()

	r.RecordDirective(contracts.DirectiveResult{Code: "rsi", Signal: contracts.SignalBullish})
	r.RecordDirective(contracts.DirectiveResult{Code: "rsi", Signal: contracts.SignalInsufficientData, InsufficientData: true})

	assert.Equal(t, 2.0, counterValue(t, r, "tradepress_directive_evaluations_total", "code", "rsi"))
	assert.Equal(t, 1.0, counterValue(t, r, "tradepress_directive_evaluations_total", "signal", contracts.SignalBullish))
	assert.Equal(t, 1.0, counterValue(t, r, "tradepress_directive_insufficient_data_total", "code", "rsi"))
}

func TestRecorder_Capability(t *testing.T) {
	r := New()
	r.RecordCapabilityCache(CacheMiss)
	r.RecordCapabilityCache(CacheRebuild)
	r.RecordCapabilityCache(CacheHit)
	r.RecordCapabilityCache(CacheHit)

	assert.Equal(t, 2.0, counterValue(t, r, "tradepress_capability_cache_events_total", "event", CacheHit))
	assert.Equal(t, 1.0, counterValue(t, r, "tradepress_capability_cache_events_total", "event", CacheRebuild))
}

func TestRecorder_Independent(t *testing.T) {
	// each recorder owns a registry, so two of them never collide
	a, b := New(), New()
	a.RecordRanking(10*time.Millisecond, 3)

	assert.Equal(t, 3.0, counterValue(t, a, "tradepress_ranked_candidates_total", "", ""))
	assert.Equal(t, 0.0, counterValue(t, b, "tradepress_ranked_candidates_total", "", ""))
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordDirective(contracts.DirectiveResult{Code: "rsi"})
		r.RecordComponentFailure("guidance")
		r.RecordRanking(time.Second, 1)
		r.RecordCapabilityCache(CacheHit)
		r.RecordHTTP("/health", "GET", "200", time.Millisecond)
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.RecordComponentFailure("guidance")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tradepress_scoring_component_failures_total{component="guidance"} 1`)
}
