package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepress/internal/api/handlers"
	"github.com/wonny/tradepress/internal/capability"
	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/directiveconfig"
	"github.com/wonny/tradepress/internal/directives"
	"github.com/wonny/tradepress/internal/scoring"
	"github.com/wonny/tradepress/internal/storage"
	"github.com/wonny/tradepress/pkg/cache"
	"github.com/wonny/tradepress/pkg/config"
	"github.com/wonny/tradepress/pkg/logger"
	"github.com/wonny/tradepress/pkg/metrics"
	"github.com/wonny/tradepress/pkg/redis"
)

// fakeRepository records saves and serves a canned ranking
type fakeRepository struct {
	saved        []contracts.CompositeScoreResult
	directives   map[string][]contracts.DirectiveResult
	latest       *contracts.RankingRun
	historyLimit int
}

func (f *fakeRepository) SaveRanking(_ context.Context, results []contracts.CompositeScoreResult) (string, error) {
	f.saved = results
	return "run-1", nil
}

func (f *fakeRepository) LatestRanking(_ context.Context, limit int) (*contracts.RankingRun, error) {
	if f.latest == nil {
		return nil, storage.ErrNotFound
	}
	return f.latest, nil
}

func (f *fakeRepository) SaveDirectiveResult(_ context.Context, symbol string, result contracts.DirectiveResult) error {
	if f.directives == nil {
		f.directives = make(map[string][]contracts.DirectiveResult)
	}
	f.directives[symbol] = append(f.directives[symbol], result)
	return nil
}

func (f *fakeRepository) DirectiveHistory(_ context.Context, symbol, code string, limit int) ([]contracts.DirectiveResult, error) {
	f.historyLimit = limit
	return f.directives[symbol], nil
}

type testServer struct {
	handler http.Handler
	metrics *metrics.Recorder
}

func newTestServer(t *testing.T, repo contracts.RankingRepository, rateLimit int) *testServer {
	t.Helper()
	return newTestServerWithProxies(t, repo, rateLimit, nil)
}

func newTestServerWithProxies(t *testing.T, repo contracts.RankingRepository, rateLimit int, proxies []string) *testServer {
	t.Helper()

	trusted, err := config.ParseCIDRs(proxies)
	require.NoError(t, err)

	log := logger.Nop()
	rec := metrics.New()

	registry := directives.NewDefaultRegistry()
	resolved, err := directiveconfig.Default().Resolve(registry)
	require.NoError(t, err)

	scorer, err := scoring.NewScorer(registry, resolved.Scoring, log,
		scoring.WithDirectiveConfigs(resolved.Overrides, resolved.Fallback),
		scoring.WithMetrics(rec))
	require.NoError(t, err)

	capSvc := capability.NewService(cache.NewMemoryStore(), time.Hour, log, capability.WithMetrics(rec))

	client, err := redis.New(&config.Config{})
	require.NoError(t, err)

	router := NewRouter(Handlers{
		Health:       handlers.NewHealthHandler(nil, registry.Len()),
		Directives:   handlers.NewDirectiveHandler(registry, resolved, repo, rec, log),
		Scoring:      handlers.NewScoringHandler(scorer, repo, log),
		Capabilities: handlers.NewCapabilityHandler(capSvc, log),
	}, RouterOptions{
		Logger:         log,
		Metrics:        rec,
		RateLimiter:    redis.NewRateLimiter(client),
		RateLimit:      redis.APIRateLimit(rateLimit, time.Minute),
		TrustedProxies: trusted,
	})

	return &testServer{handler: router, metrics: rec}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	w := srv.do(t, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["database"])
	assert.Equal(t, float64(10), body["directives"])
}

func TestDirectives_ListAndGet(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	w := srv.do(t, "GET", "/api/directives", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Directives []handlers.DirectiveInfo `json:"directives"`
		Count      int                      `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 10, list.Count)
	assert.Equal(t, "rsi", list.Directives[0].Code)
	assert.True(t, list.Directives[0].Enabled)

	w = srv.do(t, "GET", "/api/directives/CCI", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info handlers.DirectiveInfo
	decode(t, w, &info)
	assert.Equal(t, "cci", info.Code)
	assert.Equal(t, contracts.TradingModeLong, info.ActiveConfig.TradingMode)
	assert.NotEmpty(t, info.RequiredFields)

	w = srv.do(t, "GET", "/api/directives/bogus", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectives_Evaluate(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	w := srv.do(t, "POST", "/api/directives/cci/evaluate",
		`{"data":{"symbol":"AAPL","technical":{"cci":-85.2}}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result contracts.DirectiveResult
	decode(t, w, &result)
	assert.Equal(t, "cci", result.Code)
	assert.InDelta(t, 67.04, result.Score, 0.001)
	assert.Equal(t, "approaching_oversold", result.Condition)

	// short mode mirrors the score
	w = srv.do(t, "POST", "/api/directives/cci/evaluate",
		`{"data":{"technical":{"cci":-85.2}},"trading_mode":"short"}`)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &result)
	assert.InDelta(t, 32.96, result.Score, 0.001)
	assert.Equal(t, contracts.TradingModeShort, result.TradingMode)
}

func TestDirectives_EvaluateValidation(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	w := srv.do(t, "POST", "/api/directives/rsi/evaluate", `{"trading_mode":"sideways"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Details []handlers.ValidationError `json:"details"`
	}
	decode(t, w, &body)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "trading_mode", body.Details[0].Field)
	assert.Equal(t, "ERR_ONEOF", body.Details[0].Code)

	w = srv.do(t, "POST", "/api/directives/rsi/evaluate", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDirectives_EvaluateParamRange(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	var body struct {
		Details []handlers.ValidationError `json:"details"`
	}

	w := srv.do(t, "POST", "/api/directives/volume/evaluate",
		`{"data":{"volume":2000,"average_volume":1000,"change_percent":2},"params":{"surge_ratio":0.5}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	decode(t, w, &body)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "ERR_PARAM_RANGE", body.Details[0].Code)
	assert.Equal(t, "params.surge_ratio", body.Details[0].Field)

	// shared params must fit every enabled directive
	w = srv.do(t, "POST", "/api/directives/evaluate", `{"data":{"technical":{"rsi":25}},"params":{"oversold":25}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body.Details = nil
	decode(t, w, &body)
	require.NotEmpty(t, body.Details)
	for _, d := range body.Details {
		assert.Equal(t, "params.oversold", d.Field)
	}
}

func TestDirectives_EvaluateAllInsufficient(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	w := srv.do(t, "POST", "/api/directives/evaluate", `{"data":{"symbol":"EMPTY"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Symbol  string                      `json:"symbol"`
		Results []contracts.DirectiveResult `json:"results"`
	}
	decode(t, w, &body)
	assert.Equal(t, "EMPTY", body.Symbol)
	require.Len(t, body.Results, 10)
	for _, r := range body.Results {
		assert.True(t, r.InsufficientData, r.Code)
		assert.Equal(t, 50.0, r.Score, r.Code)
		assert.Equal(t, contracts.SignalInsufficientData, r.Signal, r.Code)
	}
}

func TestDirectives_SaveAndHistory(t *testing.T) {
	// no storage configured
	srv := newTestServer(t, nil, 0)
	w := srv.do(t, "POST", "/api/directives/rsi/evaluate", `{"data":{"symbol":"AAPL","technical":{"rsi":25}},"save":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w = srv.do(t, "GET", "/api/directives/rsi/history?symbol=AAPL", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	repo := &fakeRepository{}
	srv = newTestServer(t, repo, 0)

	w = srv.do(t, "POST", "/api/directives/rsi/evaluate", `{"data":{"symbol":"AAPL","technical":{"rsi":25}},"save":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, repo.directives["AAPL"], 1)
	assert.Equal(t, "rsi", repo.directives["AAPL"][0].Code)

	// saving needs a symbol
	w = srv.do(t, "POST", "/api/directives/rsi/evaluate", `{"data":{"technical":{"rsi":25}},"save":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, "GET", "/api/directives/rsi/history", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, "GET", "/api/directives/rsi/history?symbol=AAPL", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, repo.historyLimit)

	var body struct {
		History []contracts.DirectiveResult `json:"history"`
	}
	decode(t, w, &body)
	assert.Len(t, body.History, 1)

	w = srv.do(t, "GET", "/api/directives/rsi/history?symbol=AAPL&limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = srv.do(t, "GET", "/api/directives/rsi/history?symbol=AAPL&limit=5000", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

const rankBody = `{
	"candidates": [
		{"symbol": "BBB", "guidance": "lowered"},
		{"symbol": "AAA", "beat_rate": 0.9, "avg_surprise_pct": 8, "guidance": "raised"}
	],
	"limit": %s
	%s
}`

func rankRequest(limit string, save bool) string {
	extra := ""
	if save {
		extra = `, "save": true`
	}
	return fmt.Sprintf(rankBody, limit, extra)
}

func TestScoring_Rank(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	w := srv.do(t, "POST", "/api/scoring/rank", rankRequest("0", false))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handlers.RankResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "AAA", resp.Results[0].Symbol)
	assert.Equal(t, 1, resp.Results[0].Rank)
	assert.Equal(t, "BBB", resp.Results[1].Symbol)
	assert.Contains(t, resp.Results[1].RiskFactors, "Guidance lowered")
	assert.Empty(t, resp.RunID)

	w = srv.do(t, "POST", "/api/scoring/rank", rankRequest("1", false))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Results, 1)

	w = srv.do(t, "POST", "/api/scoring/rank", `{"candidates": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, "POST", "/api/scoring/rank", rankRequest("1", true))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScoring_RankSaveAndLatest(t *testing.T) {
	repo := &fakeRepository{}
	srv := newTestServer(t, repo, 0)

	w := srv.do(t, "GET", "/api/scoring/latest", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, "POST", "/api/scoring/rank", rankRequest("1", true))
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.RankResponse
	decode(t, w, &resp)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Len(t, repo.saved, 2, "the full ranking is stored regardless of limit")

	repo.latest = &contracts.RankingRun{ID: "run-1", Results: repo.saved}
	w = srv.do(t, "GET", "/api/scoring/latest?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	var run contracts.RankingRun
	decode(t, w, &run)
	assert.Equal(t, "run-1", run.ID)
	assert.Len(t, run.Results, 2)

	w = srv.do(t, "GET", "/api/scoring/latest", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScoring_LatestWithoutStorage(t *testing.T) {
	srv := newTestServer(t, nil, 0)
	w := srv.do(t, "GET", "/api/scoring/latest", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCapabilities(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	var status map[string]interface{}
	w := srv.do(t, "GET", "/api/capabilities/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &status)
	assert.Equal(t, false, status["cached"])
	assert.Equal(t, float64(3600), status["ttl_seconds"])

	w = srv.do(t, "GET", "/api/capabilities", "")
	require.Equal(t, http.StatusOK, w.Code)
	var matrix contracts.CapabilityMatrix
	decode(t, w, &matrix)
	assert.Len(t, matrix.Platforms, 20)

	w = srv.do(t, "GET", "/api/capabilities/status", "")
	decode(t, w, &status)
	assert.Equal(t, true, status["cached"])

	w = srv.do(t, "GET", "/api/capabilities/data-types/short_interest", "")
	require.Equal(t, http.StatusOK, w.Code)
	var dt struct {
		Platforms        []string `json:"platforms"`
		FreshnessSeconds int      `json:"freshness_seconds"`
	}
	decode(t, w, &dt)
	assert.Equal(t, []string{"nasdaq_data_link", "polygon", "yahoo_finance"}, dt.Platforms)
	assert.Equal(t, 259200, dt.FreshnessSeconds)

	w = srv.do(t, "GET", "/api/capabilities/data-types/tea_leaves", "")
	decode(t, w, &dt)
	assert.Empty(t, dt.Platforms)
	assert.NotNil(t, dt.Platforms)
	assert.Equal(t, 3600, dt.FreshnessSeconds)

	var supports struct {
		Supported bool `json:"supported"`
	}
	w = srv.do(t, "GET", "/api/capabilities/platforms/polygon/supports/short_interest", "")
	decode(t, w, &supports)
	assert.True(t, supports.Supported)
	w = srv.do(t, "GET", "/api/capabilities/platforms/newsapi/supports/short_interest", "")
	decode(t, w, &supports)
	assert.False(t, supports.Supported)

	w = srv.do(t, "DELETE", "/api/capabilities/cache", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = srv.do(t, "GET", "/api/capabilities/status", "")
	decode(t, w, &status)
	assert.Equal(t, false, status["cached"])

	w = srv.do(t, "POST", "/api/capabilities/refresh", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = srv.do(t, "GET", "/api/capabilities/status", "")
	decode(t, w, &status)
	assert.Equal(t, true, status["cached"])
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, nil, 2)

	for i := 0; i < 2; i++ {
		w := srv.do(t, "GET", "/api/directives", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := srv.do(t, "GET", "/api/directives", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// health is outside the limited subrouter
	w = srv.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, 0)

	srv.do(t, "POST", "/api/directives/rsi/evaluate", `{"data":{"technical":{"rsi":25}}}`)

	w := srv.do(t, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `tradepress_http_requests_total{method="POST",route="/api/directives/{code}/evaluate",status="200"} 1`)
	assert.Contains(t, body, `tradepress_directive_evaluations_total{code="rsi",signal="Bullish"} 1`)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

func (s *testServer) doFrom(t *testing.T, remoteAddr, forwardedFor string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("GET", "/api/directives", nil)
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func TestRateLimit_IgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	srv := newTestServer(t, nil, 2)

	allowed := 0
	for i := 0; i < 100; i++ {
		w := srv.doFrom(t, "198.51.100.7:40000", fmt.Sprintf("203.0.113.%d", i))
		if w.Code == http.StatusOK {
			allowed++
		} else {
			require.Equal(t, http.StatusTooManyRequests, w.Code)
		}
	}

	assert.Equal(t, 2, allowed)
}

func TestRateLimit_TrustedProxy(t *testing.T) {
	srv := newTestServerWithProxies(t, nil, 1, []string{"10.0.0.0/8"})

	// each forwarded client behind the proxy gets its own bucket
	assert.Equal(t, http.StatusOK, srv.doFrom(t, "10.0.0.5:80", "203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, srv.doFrom(t, "10.0.0.5:80", "203.0.113.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, srv.doFrom(t, "10.0.0.5:80", "203.0.113.2").Code)

	// a client-supplied left-most hop does not pick the bucket
	assert.Equal(t, http.StatusTooManyRequests, srv.doFrom(t, "10.0.0.5:80", "1.2.3.4, 203.0.113.2").Code)
}

func TestClientIP(t *testing.T) {
	trusted, err := config.ParseCIDRs([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trusted    bool
		want       string
	}{
		{"peer only", "192.0.2.1:5555", "", true, "192.0.2.1"},
		{"untrusted peer ignores header", "192.0.2.1:5555", "203.0.113.9", true, "192.0.2.1"},
		{"no trusted proxies", "10.0.0.1:5555", "203.0.113.9", false, "10.0.0.1"},
		{"trusted proxy", "10.0.0.1:5555", "203.0.113.9", true, "203.0.113.9"},
		{"proxy chain", "10.0.0.1:5555", "198.51.100.1, 203.0.113.9, 10.0.0.2", true, "203.0.113.9"},
		{"all hops trusted", "10.0.0.1:5555", "10.0.0.3", true, "10.0.0.1"},
		{"garbage hop", "10.0.0.1:5555", "not-an-ip", true, "10.0.0.1"},
		{"no port", "192.0.2.1", "", true, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			var nets []*net.IPNet
			if tt.trusted {
				nets = trusted
			}
			assert.Equal(t, tt.want, clientIP(r, nets))
		})
	}
}
