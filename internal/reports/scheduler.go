package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/pkg/storage"
)

// SchedulerConfig configuration for periodic report delivery.
type SchedulerConfig struct {
	CronSpec string
	Bucket   string
	Lookback time.Duration
}

// DefaultSchedulerConfig delivers a workbook covering the previous 30 days
// at 06:00 on the first of every month.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		CronSpec: "0 6 1 * *",
		Bucket:   "docuflow-docs",
		Lookback: 30 * 24 * time.Hour,
	}
}

// Scheduler periodically renders the report workbook into object storage so
// administrators get a standing monthly export.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	storage storage.Client
	logger  *zap.Logger
	config  SchedulerConfig
}

func NewScheduler(service *Service, storageClient storage.Client, logger *zap.Logger, config SchedulerConfig) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		storage: storageClient,
		logger:  logger,
		config:  config,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.config.CronSpec, s.deliver); err != nil {
		return fmt.Errorf("failed to schedule report delivery: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Report scheduler started", zap.String("cron", s.config.CronSpec))
	return nil
}

// Stop waits for a running delivery to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Report scheduler stopped")
}

func (s *Scheduler) deliver() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	period := Period{From: now.Add(-s.config.Lookback), To: now}

	workbook, err := s.service.ExportWorkbook(ctx, period)
	if err != nil {
		s.logger.Error("Scheduled report export failed", zap.Error(err))
		return
	}

	key := fmt.Sprintf("reports/submissions-%s.xlsx", now.Format("2006-01"))
	if err := s.storage.Upload(ctx, s.config.Bucket, key, workbook); err != nil {
		s.logger.Error("Failed to store scheduled report", zap.Error(err))
		return
	}

	s.logger.Info("Scheduled report delivered", zap.String("key", key))
}
