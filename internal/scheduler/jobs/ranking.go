package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/pkg/logger"
)

// CandidateSource supplies the candidates of one ranking pass
type CandidateSource func(ctx context.Context) ([]contracts.Candidate, error)

// Ranker scores and ranks candidates
type Ranker interface {
	ScoreAndRank(ctx context.Context, candidates []contracts.Candidate) ([]contracts.CompositeScoreResult, error)
}

// RankingSnapshotJob scores the candidate list and stores the ranking
// ⭐ SSOT: 랭킹 스냅샷 스케줄은 이 Job에서만
type RankingSnapshotJob struct {
	source   CandidateSource
	ranker   Ranker
	repo     contracts.RankingRepository
	schedule string
	logger   *logger.Logger
}

// NewRankingSnapshotJob creates a new ranking snapshot job
func NewRankingSnapshotJob(
	source CandidateSource,
	ranker Ranker,
	repo contracts.RankingRepository,
	schedule string,
	log *logger.Logger,
) *RankingSnapshotJob {
	return &RankingSnapshotJob{
		source:   source,
		ranker:   ranker,
		repo:     repo,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *RankingSnapshotJob) Name() string {
	return "ranking_snapshot"
}

// Schedule returns the cron schedule
func (j *RankingSnapshotJob) Schedule() string {
	return j.schedule
}

// Run loads candidates, ranks them and persists the run
func (j *RankingSnapshotJob) Run(ctx context.Context) error {
	// 1. Load candidates
	candidates, err := j.source(ctx)
	if err != nil {
		return fmt.Errorf("load candidates: %w", err)
	}
	if len(candidates) == 0 {
		j.logger.Warn("No candidates to rank, skipping snapshot")
		return nil
	}

	// 2. Score and rank
	results, err := j.ranker.ScoreAndRank(ctx, candidates)
	if err != nil {
		return fmt.Errorf("rank candidates: %w", err)
	}

	// 3. Persist
	runID, err := j.repo.SaveRanking(ctx, results)
	if err != nil {
		return fmt.Errorf("save ranking: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":     runID,
		"candidates": len(results),
	}
	if len(results) > 0 {
		fields["top_symbol"] = results[0].Symbol
		fields["top_score"] = results[0].TotalScore
	}
	j.logger.WithFields(fields).Info("Ranking snapshot stored")

	return nil
}
