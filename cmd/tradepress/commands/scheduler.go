package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepress/internal/contracts"
	"github.com/wonny/tradepress/internal/scheduler"
	"github.com/wonny/tradepress/internal/scheduler/jobs"
	"github.com/wonny/tradepress/internal/scoring"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/tradepress scheduler start
  go run ./cmd/tradepress scheduler run capability_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- capability_refresh: $CAPABILITY_REFRESH_SCHEDULE (기본 매일 03:00)
- ranking_snapshot: $RANKING_SCHEDULE (기본 평일 07:30, DATABASE_URL과 CANDIDATES_FILE 필요)
- cache_cleanup: 5분마다 (Redis 비활성 시 인메모리 캐시 정리)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: os.Stdout, database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	out := cmd.OutOrStdout()
	printSuccess(out, "Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	printList(out, sched.GetAllJobs())
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()

	widths := []int{20, 18}
	printTableHeader(out, []string{"JOB", "SCHEDULE"}, widths)
	for _, name := range sched.GetAllJobs() {
		printTableRow(out, []string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr(), database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a, scheduler.WithRetry(0, 0))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.Trigger(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	out := cmd.OutOrStdout()
	if !result.Success {
		return fmt.Errorf("job %s failed: %s", jobName, result.Error)
	}
	printSuccess(out, fmt.Sprintf("Job %s completed in %s", jobName, result.Duration.Round(time.Millisecond)))
	return nil
}

// initScheduler registers every job the current configuration supports
func initScheduler(a *app, opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, opts...)
	jobLog := a.log.WithComponent("job")

	if err := sched.AddJob(jobs.NewCapabilityRefreshJob(a.capability, a.cfg.Scoring.CapabilitySchedule, jobLog)); err != nil {
		return nil, err
	}

	switch {
	case a.repo == nil:
		a.log.Debug("DATABASE_URL not set, ranking_snapshot disabled")
	case a.cfg.Scoring.CandidatesFile == "":
		a.log.Debug("CANDIDATES_FILE not set, ranking_snapshot disabled")
	default:
		path := a.cfg.Scoring.CandidatesFile
		source := func(context.Context) ([]contracts.Candidate, error) {
			return scoring.LoadCandidatesFile(path)
		}
		if err := sched.AddJob(jobs.NewRankingSnapshotJob(source, a.scorer, a.repo, a.cfg.Scoring.RankingSchedule, jobLog)); err != nil {
			return nil, err
		}
	}

	if a.memory != nil {
		if err := sched.AddJob(jobs.NewCacheCleanupJob(a.memory, jobLog)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
