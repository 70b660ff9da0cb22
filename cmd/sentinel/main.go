// Sentinel - real-time transaction risk scoring with shared fraud intelligence.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Timiochukwu/sentinel/internal/api"
	"github.com/Timiochukwu/sentinel/internal/bus"
	"github.com/Timiochukwu/sentinel/internal/consortium"
	"github.com/Timiochukwu/sentinel/internal/counter"
	"github.com/Timiochukwu/sentinel/internal/decision"
	"github.com/Timiochukwu/sentinel/internal/domain"
	"github.com/Timiochukwu/sentinel/internal/feedback"
	"github.com/Timiochukwu/sentinel/internal/policy"
	"github.com/Timiochukwu/sentinel/internal/repository"
	"github.com/Timiochukwu/sentinel/internal/rules"
	"github.com/Timiochukwu/sentinel/internal/velocity"
	"github.com/Timiochukwu/sentinel/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Load configuration
	cfg := domain.DefaultConfig()
	if os.Getenv("SENTINEL_TIER") == "pro" {
		cfg = domain.ProConfig()
	}
	cfg.ApplyEnv()

	setupLogger(cfg.Logging)

	slog.Info("starting sentinel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"counters", cfg.Counter.Type,
		"eventbus", cfg.EventBus.Type,
		"consortium", cfg.Consortium.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize counter store
	counters, err := counter.New(cfg.Counter)
	if err != nil {
		slog.Error("failed to initialize counter store", "error", err)
		os.Exit(1)
	}
	defer counters.Close()
	slog.Info("counter store initialized", "type", cfg.Counter.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Consortium pool
	hasher := consortium.NewHasher(cfg.Consortium.HashSalt)
	cons := consortium.NewService(repo, hasher, cfg.Consortium)
	slog.Info("consortium initialized", "enabled", cfg.Consortium.Enabled)

	// Rule catalog and tenant rule engine
	catalog, err := rules.Catalog()
	if err != nil {
		slog.Error("failed to build rule catalog", "error", err)
		os.Exit(1)
	}
	custom, err := rules.NewCustomEngine(nil)
	if err != nil {
		slog.Error("failed to initialize custom rule engine", "error", err)
		os.Exit(1)
	}
	evaluator := rules.NewEvaluator(catalog, custom, 0, nil)
	slog.Info("rule catalog loaded", "rules_count", evaluator.CatalogSize())

	// Preload tenant rules for any tenants named up front. Other tenants
	// load theirs via POST /v1/rules or /v1/rules/reload.
	tenantIDs := splitTenants(os.Getenv("SENTINEL_TENANTS"))
	for _, tenantID := range tenantIDs {
		tenantRules, err := repo.ListCustomRules(ctx, tenantID)
		if err != nil {
			slog.Warn("failed to preload tenant rules", "tenant_id", tenantID, "error", err)
			continue
		}
		custom.LoadTenant(tenantID, tenantRules)
		slog.Info("tenant rules loaded", "tenant_id", tenantID, "count", len(tenantRules))
	}

	// Vertical policies: defaults overlaid with persisted overrides
	policies := policy.NewStore(nil)
	if err := policies.Load(ctx, repo); err != nil {
		slog.Warn("failed to load persisted policies, using defaults", "error", err)
	}

	combiner := decision.NewCombiner(cfg.Scoring)
	aggregator := velocity.NewAggregator(counters, cons, cfg.Scoring.AggregatorBudget, nil)
	feedbackSvc := feedback.NewService(repo, cons, busImpl, nil)

	// Async feedback worker for the configured tenants
	var feedbackWorker *worker.Worker
	if len(tenantIDs) > 0 {
		feedbackWorker = worker.NewWorker(busImpl, feedbackSvc, nil)
		if err := feedbackWorker.Start(worker.Config{TenantIDs: tenantIDs}); err != nil {
			slog.Error("failed to start feedback worker", "error", err)
		}
	}

	// Initialize Server
	handler := api.NewHandler(repo, busImpl, evaluator, custom, policies, combiner, aggregator, cons, feedbackSvc, Version)
	srv := api.NewServer(cfg.Server, handler)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("sentinel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version, evaluator.CatalogSize())

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	if feedbackWorker != nil {
		if err := feedbackWorker.Stop(); err != nil {
			slog.Error("failed to stop feedback worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("sentinel shutdown complete")
}

func setupLogger(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func splitTenants(raw string) []string {
	var out []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func printBanner(cfg *domain.Config, version string, ruleCount int) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               SENTINEL                    ║")
	fmt.Println("  ║   Transaction Risk Scoring Engine         ║")
	fmt.Println("  ║   Fraud seen once is fraud seen by all.   ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Rules:    %d\n", ruleCount)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /v1/check                  - Score a transaction")
	fmt.Println("    POST /v1/feedback               - Confirm an outcome")
	fmt.Println("    GET  /v1/evaluations/{id}       - Get evaluation by ID")
	fmt.Println("    GET  /v1/transactions/{id}      - Get transaction by ID")
	fmt.Println("    GET  /v1/rules                  - List the rule catalog")
	fmt.Println("    GET  /v1/rules/{name}           - Inspect one rule")
	fmt.Println("    POST /v1/rules                  - Create a tenant rule")
	fmt.Println("    POST /v1/rules/reload           - Hot-reload tenant rules")
	fmt.Println("    GET  /v1/policies               - List vertical policies")
	fmt.Println("    PUT  /v1/policies/{vertical}    - Update a vertical policy")
	fmt.Println("    POST /v1/policies/reload        - Reload persisted policies")
	fmt.Println("    GET  /v1/consortium/stats       - Shared pool statistics")
	fmt.Println("    GET  /health                    - Health check")
	fmt.Println()
}
