package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/storage"
	"github.com/wonny/tradepress/pkg/logger"
)

// Ranker scores and ranks candidates
type Ranker interface {
	ScoreAndRank(ctx context.Context, candidates []contracts.Candidate) ([]contracts.CompositeScoreResult, error)
}

// ScoringHandler handles composite scoring endpoints
// ⭐ SSOT: 종합 점수 API 핸들러는 이 구조체에서만
type ScoringHandler struct {
	ranker Ranker
	repo   contracts.RankingRepository // optional
	logger *logger.Logger
}

// NewScoringHandler creates a new scoring handler
func NewScoringHandler(ranker Ranker, repo contracts.RankingRepository, log *logger.Logger) *ScoringHandler {
	return &ScoringHandler{
		ranker: ranker,
		repo:   repo,
		logger: log.WithComponent("scoring_api"),
	}
}

// RankRequest is the body of the rank endpoint
type RankRequest struct {
	Candidates []contracts.Candidate `json:"candidates" validate:"required,min=1,max=1000"`
	Limit      int                   `json:"limit" default:"50" validate:"gte=1,lte=1000"`
	Save       bool                  `json:"save"`
}

// RankResponse is the ranked result list
type RankResponse struct {
	RunID   string                           `json:"run_id,omitempty"`
	Total   int                              `json:"total"`
	Results []contracts.CompositeScoreResult `json:"results"`
}

// LatestQuery is the query of the latest endpoint
type LatestQuery struct {
	Limit int `query:"limit" default:"20" validate:"gte=1,lte=1000"`
}

// Rank scores and ranks the posted candidates
// POST /api/scoring/rank
func (h *ScoringHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if errs := decodeAndValidate(w, r, &req); errs != nil {
		respondValidation(w, errs)
		return
	}

	if req.Save && h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Ranking storage not configured")
		return
	}

	results, err := h.ranker.ScoreAndRank(r.Context(), req.Candidates)
	if err != nil {
		h.logger.WithError(err).Warn("Ranking aborted")
		respondError(w, http.StatusServiceUnavailable, "Ranking aborted: "+err.Error())
		return
	}

	resp := RankResponse{Total: len(results)}

	if req.Save {
		runID, err := h.repo.SaveRanking(r.Context(), results)
		if err != nil {
			h.logger.WithError(err).Error("Failed to save ranking")
			respondError(w, http.StatusInternalServerError, "Failed to save ranking")
			return
		}
		resp.RunID = runID
	}

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	resp.Results = results

	respondJSON(w, http.StatusOK, resp)
}

// Latest returns the most recent stored ranking
// GET /api/scoring/latest?limit=20
func (h *ScoringHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "Ranking storage not configured")
		return
	}

	var q LatestQuery
	if errs := bindQuery(r, &q); errs != nil {
		respondValidation(w, errs)
		return
	}

	run, err := h.repo.LatestRanking(r.Context(), q.Limit)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No ranking stored yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest ranking")
		respondError(w, http.StatusInternalServerError, "Failed to load latest ranking")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
