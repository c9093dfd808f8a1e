package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepress/internal/api"
	"github.com/wonny/tradepress/internal/api/handlers"
	"github.com/wonny/tradepress/pkg/config"
	"github.com/wonny/tradepress/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET    /health
  GET    /metrics
  GET    /api/directives
  GET    /api/directives/{code}
  POST   /api/directives/{code}/evaluate
  GET    /api/directives/{code}/history
  POST   /api/directives/evaluate
  POST   /api/scoring/rank
  GET    /api/scoring/latest
  GET    /api/capabilities
  GET    /api/capabilities/status
  GET    /api/capabilities/data-types/{type}
  GET    /api/capabilities/platforms/{platform}/supports/{type}
  DELETE /api/capabilities/cache
  POST   /api/capabilities/refresh

Example:
  go run ./cmd/tradepress api
  go run ./cmd/tradepress api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: $PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{logOut: os.Stdout, database: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// health checker stays a nil interface without a database
	var dbCheck handlers.HealthChecker
	if a.db != nil {
		dbCheck = a.db
	}

	var limiter *redis.RateLimiter
	if a.cfg.API.RateLimit > 0 {
		limiter = redis.NewRateLimiter(a.redis)
	}

	trusted, err := config.ParseCIDRs(a.cfg.API.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted proxies: %w", err)
	}

	router := api.NewRouter(api.Handlers{
		Health:       handlers.NewHealthHandler(dbCheck, a.registry.Len()),
		Directives:   handlers.NewDirectiveHandler(a.registry, a.resolved, a.repository(), a.metrics, a.log),
		Scoring:      handlers.NewScoringHandler(a.scorer, a.repository(), a.log),
		Capabilities: handlers.NewCapabilityHandler(a.capability, a.log),
	}, api.RouterOptions{
		Logger:         a.log,
		Metrics:        a.metrics,
		RateLimiter:    limiter,
		RateLimit:      redis.APIRateLimit(a.cfg.API.RateLimit, a.cfg.API.RateLimitWindow),
		TrustedProxies: trusted,
	})

	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	if a.repo == nil {
		printWarning(out, "DATABASE_URL not set: ranking history endpoints return 503")
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
