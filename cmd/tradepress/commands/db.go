package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

// dbCmd checks the ranking database
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "PostgreSQL 연결 테스트 및 스키마 생성",
	Long: `데이터베이스 연결을 테스트하고 scoring 스키마를 생성합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 연결 생성 및 scoring 스키마 보장
- Health Check 실행
- Connection Pool 통계 표시

Example:
  go run ./cmd/tradepress db`,
	RunE: runDBCheck,
}

func init() {
	rootCmd.AddCommand(dbCmd)
}

func runDBCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: cmd.ErrOrStderr(), database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if a.db == nil {
		printWarning(out, "DATABASE_URL not set")
		return nil
	}

	printHeader(out, "Database")
	printKeyValue(out, "URL", redactURL(a.cfg.Database.URL), 16)
	printSuccess(out, "Connection established, schema ensured")

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status, err := a.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	printKeyValue(out, "Response Time", status.ResponseTime.String(), 16)
	printKeyValue(out, "Max Conns", fmt.Sprintf("%d", status.Stats.MaxConns), 16)
	printKeyValue(out, "Total Conns", fmt.Sprintf("%d", status.Stats.TotalConns), 16)
	printKeyValue(out, "Idle Conns", fmt.Sprintf("%d", status.Stats.IdleConns), 16)
	printKeyValue(out, "Acquire Count", fmt.Sprintf("%d", status.Stats.AcquireCount), 16)
	return nil
}

// redactURL masks the password in a database URL for display
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
