package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/directiveconfig"
	"github.com/wonny/tradepress/internal/directives"
	"github.com/wonny/tradepress/pkg/logger"
	"github.com/wonny/tradepress/pkg/metrics"
)

// DirectiveHandler handles directive API endpoints
// ⭐ SSOT: 지시자 API 핸들러는 이 구조체에서만
type DirectiveHandler struct {
	registry *directives.Registry
	resolved *directiveconfig.Resolved
	repo     contracts.RankingRepository // optional
	metrics  *metrics.Recorder
	logger   *logger.Logger
}

// NewDirectiveHandler creates a new directive handler. repo may be nil
// when no database is configured.
func NewDirectiveHandler(
	registry *directives.Registry,
	resolved *directiveconfig.Resolved,
	repo contracts.RankingRepository,
	rec *metrics.Recorder,
	log *logger.Logger,
) *DirectiveHandler {
	return &DirectiveHandler{
		registry: registry,
		resolved: resolved,
		repo:     repo,
		metrics:  rec,
		logger:   log.WithComponent("directive_api"),
	}
}

// DirectiveInfo describes one registered directive
type DirectiveInfo struct {
	Code           string                    `json:"code"`
	Name           string                    `json:"name"`
	Description    string                    `json:"description"`
	RequiredFields []string                  `json:"required_fields"`
	DefaultConfig  contracts.DirectiveConfig `json:"default_config"`
	ActiveConfig   contracts.DirectiveConfig `json:"active_config"`
	Enabled        bool                      `json:"enabled"`
}

// EvaluateRequest is the body of the evaluate endpoints
type EvaluateRequest struct {
	Data        contracts.MarketDataSnapshot `json:"data"`
	TradingMode string                       `json:"trading_mode" validate:"omitempty,oneof=long short"`
	Params      map[string]float64           `json:"params"`
	Save        bool                         `json:"save"`
}

// HistoryQuery is the query of the history endpoint
type HistoryQuery struct {
	Symbol string `query:"symbol" validate:"required"`
	Limit  int    `query:"limit" default:"20" validate:"gte=1,lte=500"`
}

func (h *DirectiveHandler) info(d directives.Directive) DirectiveInfo {
	code := d.Code()
	return DirectiveInfo{
		Code:           code,
		Name:           d.Name(),
		Description:    d.Description(),
		RequiredFields: d.RequiredFields(),
		DefaultConfig:  d.DefaultConfig(),
		ActiveConfig:   h.resolved.Config(code).Merge(d.DefaultConfig()),
		Enabled:        h.resolved.IsEnabled(code),
	}
}

// List returns every registered directive
// GET /api/directives
func (h *DirectiveHandler) List(w http.ResponseWriter, r *http.Request) {
	entries := h.registry.All()
	out := make([]DirectiveInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, h.info(e.Directive))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"directives":   out,
		"count":        len(out),
		"trading_mode": h.resolved.TradingMode,
	})
}

// Get returns one directive
// GET /api/directives/{code}
func (h *DirectiveHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.info(d))
}

// Evaluate scores one snapshot with one directive
// POST /api/directives/{code}/evaluate
func (h *DirectiveHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req EvaluateRequest
	if errs := decodeAndValidate(w, r, &req); errs != nil {
		respondValidation(w, errs)
		return
	}

	cfg, verr := h.requestConfig(d, req)
	if verr != nil {
		respondValidation(w, []ValidationError{*verr})
		return
	}

	result := d.CalculateScore(req.Data, cfg)
	h.metrics.RecordDirective(result)

	if req.Save && !h.save(w, r, req.Data.Symbol, []contracts.DirectiveResult{result}) {
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// EvaluateAll scores one snapshot with every enabled directive
// POST /api/directives/evaluate
func (h *DirectiveHandler) EvaluateAll(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if errs := decodeAndValidate(w, r, &req); errs != nil {
		respondValidation(w, errs)
		return
	}

	type evaluation struct {
		directive directives.Directive
		cfg       contracts.DirectiveConfig
	}

	// 요청 파라미터는 모든 지시자에 적용되므로 먼저 전부 검증
	evaluations := make([]evaluation, 0, len(h.resolved.Enabled))
	var errs []ValidationError
	for _, code := range h.resolved.Enabled {
		d, err := h.registry.Get(code)
		if err != nil {
			continue
		}
		cfg, verr := h.requestConfig(d, req)
		if verr != nil {
			errs = append(errs, *verr)
			continue
		}
		evaluations = append(evaluations, evaluation{directive: d, cfg: cfg})
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	results := make([]contracts.DirectiveResult, 0, len(evaluations))
	for _, e := range evaluations {
		result := e.directive.CalculateScore(req.Data, e.cfg)
		h.metrics.RecordDirective(result)
		results = append(results, result)
	}

	if req.Save && !h.save(w, r, req.Data.Symbol, results) {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  req.Data.Symbol,
		"results": results,
	})
}

// History returns stored evaluations of one directive for a symbol
// GET /api/directives/{code}/history?symbol=AAPL&limit=20
func (h *DirectiveHandler) History(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Directive history storage not configured")
		return
	}

	var q HistoryQuery
	if errs := bindQuery(r, &q); errs != nil {
		respondValidation(w, errs)
		return
	}

	history, err := h.repo.DirectiveHistory(r.Context(), q.Symbol, d.Code(), q.Limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load directive history")
		respondError(w, http.StatusInternalServerError, "Failed to load directive history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  q.Symbol,
		"code":    d.Code(),
		"history": history,
	})
}

func (h *DirectiveHandler) lookup(w http.ResponseWriter, r *http.Request) (directives.Directive, bool) {
	code := mux.Vars(r)["code"]
	d, err := h.registry.Get(code)
	if errors.Is(err, contracts.ErrUnknownDirective) {
		respondError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return d, true
}

// requestConfig layers request overrides over the configured directive
// settings. Params outside the directive's range come back as a validation error.
func (h *DirectiveHandler) requestConfig(d directives.Directive, req EvaluateRequest) (contracts.DirectiveConfig, *ValidationError) {
	override := contracts.DirectiveConfig{
		TradingMode: contracts.TradingMode(req.TradingMode),
		Params:      req.Params,
	}
	cfg := override.Merge(h.resolved.Config(d.Code()))

	if err := directives.ValidateConfig(d, cfg); err != nil {
		field := "params"
		var perr *contracts.InvalidParamError
		if errors.As(err, &perr) {
			field = "params." + perr.Param
		}
		return cfg, &ValidationError{Code: "ERR_PARAM_RANGE", Field: field, Message: err.Error()}
	}
	return cfg, nil
}

func (h *DirectiveHandler) save(w http.ResponseWriter, r *http.Request, symbol string, results []contracts.DirectiveResult) bool {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Directive history storage not configured")
		return false
	}
	if symbol == "" {
		respondValidation(w, []ValidationError{{Code: "ERR_REQUIRED", Field: "data.symbol", Message: "data.symbol is required to save"}})
		return false
	}

	for _, result := range results {
		if err := h.repo.SaveDirectiveResult(r.Context(), symbol, result); err != nil {
			h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to save directive result")
			respondError(w, http.StatusInternalServerError, "Failed to save directive result")
			return false
		}
	}
	return true
}
