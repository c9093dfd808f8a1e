package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/pkg/logger"
)

// MatrixRefresher rebuilds the capability matrix
type MatrixRefresher interface {
	Refresh(ctx context.Context) (*contracts.CapabilityMatrix, error)
}

// CapabilityRefreshJob rebuilds and re-caches the capability matrix
// ⭐ SSOT: capability matrix 갱신 스케줄은 이 Job에서만
type CapabilityRefreshJob struct {
	service  MatrixRefresher
	schedule string
	logger   *logger.Logger
}

// NewCapabilityRefreshJob creates a new capability refresh job
func NewCapabilityRefreshJob(service MatrixRefresher, schedule string, log *logger.Logger) *CapabilityRefreshJob {
	return &CapabilityRefreshJob{
		service:  service,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CapabilityRefreshJob) Name() string {
	return "capability_refresh"
}

// Schedule returns the cron schedule
func (j *CapabilityRefreshJob) Schedule() string {
	return j.schedule
}

// Run rebuilds the matrix
func (j *CapabilityRefreshJob) Run(ctx context.Context) error {
	matrix, err := j.service.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh capability matrix: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"platforms":  len(matrix.Platforms),
		"data_types": len(matrix.DataTypes),
	}).Info("Capability matrix refreshed")

	return nil
}
