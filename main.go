package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/pkbhaiya/ytbulk/ytbulk"
	"github.com/pkbhaiya/ytbulk/ytbulk/database"
	"github.com/pkbhaiya/ytbulk/ytbulk/database/repositories"
	"github.com/pkbhaiya/ytbulk/ytbulk/logger"
	"github.com/pkbhaiya/ytbulk/ytbulk/services"
	"github.com/pkbhaiya/ytbulk/ytbulk/web"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := ytbulk.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting YTBulk API",
		slog.String("version", version),
		slog.String("commit", commit))

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	// Repositories
	batchRepo := repositories.NewBatchRepository(db.BunDB())
	workRepo := repositories.NewWorkRepository(db.BunDB())
	walletRepo := repositories.NewWalletRepository(db.BunDB())
	claimRepo := repositories.NewClaimRepository(db.BunDB(), walletRepo)
	withdrawalRepo := repositories.NewWithdrawalRepository(db.BunDB(), walletRepo)
	milestoneRepo := repositories.NewMilestoneRepository(db.BunDB(), walletRepo)

	// Services
	var spacesService *services.SpacesService
	if cfg.Spaces.Key != "" {
		spacesService, err = services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.VideoRoot,
		)
		if err != nil {
			slog.Error("Failed to initialize object storage", slog.Any("error", err))
			os.Exit(-1)
		}
	}

	youtubeService := services.NewYouTubeService(cfg.YouTube.APIKey, cfg.YouTube.RateLimit)
	batchService := services.NewBatchService(batchRepo, services.NewSuggestService())
	sweepService := services.NewSweepService(workRepo)
	refreshService := services.NewRefreshService(claimRepo, milestoneRepo, youtubeService, cfg.Payout.MetricsCooldownDays)

	server := web.NewServer(web.ServerDeps{
		AdminToken:  cfg.Server.AdminToken,
		CronSecret:  cfg.Cron.Secret,
		Batches:     batchRepo,
		Works:       workRepo,
		Claims:      claimRepo,
		Wallets:     walletRepo,
		Withdrawals: withdrawalRepo,
		Milestones:  milestoneRepo,
		BatchSvc:    batchService,
		SweepSvc:    sweepService,
		RefreshSvc:  refreshService,
		Spaces:      spacesService,
		MinWithdraw: cfg.Payout.MinWithdrawPaise,
	})

	// Internal schedules for the sweep and the metrics refresh
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Cron.SweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := sweepService.Run(ctx); err != nil {
			logger.LogError("Scheduled sweep failed", err)
		}
	}); err != nil {
		slog.Error("Invalid sweep schedule", slog.Any("error", err))
		os.Exit(-1)
	}
	if _, err := scheduler.AddFunc(cfg.Cron.RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		start := time.Now()
		result, err := refreshService.Refresh(ctx)
		if err != nil {
			logger.LogError("Scheduled refresh failed", err)
			return
		}
		logger.LogJob("metrics_refresh", time.Since(start), nil,
			"scanned", result.Scanned,
			"updated", result.Updated,
			"milestones", result.MilestonesCreated)
	}); err != nil {
		slog.Error("Invalid refresh schedule", slog.Any("error", err))
		os.Exit(-1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Prometheus endpoint on its own listener
	if cfg.Metrics.Addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.LogSystem("Metrics server listening", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.LogError("Metrics server stopped", err)
			}
		}()
	}

	go func() {
		slog.Info("Starting API server", slog.String("addr", cfg.Server.Addr))
		if err := server.Listen(cfg.Server.Addr); err != nil {
			slog.Error("Failed to start server", slog.Any("error", err))
			os.Exit(-1)
		}
	}()

	slog.Info("YTBulk is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.Any("error", err))
	}
	slog.Info("Shutdown complete")
}
