package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/internal/config"
	"docuflow/approval-portal/approval-portal-backend/internal/reports"
	"docuflow/approval-portal/approval-portal-backend/internal/stamping"
	"docuflow/approval-portal/approval-portal-backend/internal/verification"
	"docuflow/approval-portal/approval-portal-backend/pkg/pdf"
	"docuflow/approval-portal/approval-portal-backend/pkg/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found", zap.Error(err))
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	workerConfig := stamping.DefaultWorkerConfig()
	workerConfig.PollInterval = cfg.Stamping.PollInterval
	workerConfig.BatchSize = cfg.Stamping.BatchSize
	workerConfig.MaxAttempts = cfg.Stamping.MaxAttempts
	workerConfig.StaleAfter = cfg.Stamping.StaleAfter
	workerConfig.Bucket = cfg.Storage.Bucket

	storageClient := storage.NewFilesystemClient(cfg.Storage.RootDir, cfg.Server.PublicURL)

	worker := stamping.NewWorker(
		stamping.NewRepository(db),
		verification.NewService(db, cfg.Server.PublicURL, logger),
		pdf.NewStamper(),
		storageClient,
		logger,
		workerConfig,
	)

	schedulerConfig := reports.DefaultSchedulerConfig()
	schedulerConfig.Bucket = cfg.Storage.Bucket
	scheduler := reports.NewScheduler(
		reports.NewService(reports.NewRepository(db), logger),
		storageClient,
		logger,
		schedulerConfig,
	)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start report scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	if err := worker.Start(ctx); err != nil {
		logger.Fatal("Stamp worker exited", zap.Error(err))
	}
}
