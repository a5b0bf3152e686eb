package stamping

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/pkg/pdf"
	"docuflow/approval-portal/approval-portal-backend/pkg/storage"
)

// TokenIssuer mints and formats verification tokens for stamp sheets.
// Satisfied by verification.Service.
type TokenIssuer interface {
	EnsureToken(ctx context.Context, submissionID uuid.UUID) (uuid.UUID, error)
	URL(token uuid.UUID) string
}

// WorkerConfig configuration for the stamp worker
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// StaleAfter is how long a job may sit in processing before another
	// worker may reclaim it; it must exceed the longest expected render.
	StaleAfter time.Duration
	Bucket     string
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 15 * time.Second,
		BatchSize:    10,
		MaxAttempts:  3,
		StaleAfter:   10 * time.Minute,
		Bucket:       "docuflow-docs",
	}
}

// Worker drains the stamp job queue: for every finally approved submission
// it renders a stamp sheet, stores it, and marks the job done.
type Worker struct {
	repo     Repository
	verifier TokenIssuer
	stamper  pdf.Stamper
	storage  storage.Client
	logger   *zap.Logger
	config   WorkerConfig
	done     chan struct{}
}

// NewWorker creates a new stamp worker
func NewWorker(repo Repository, verifier TokenIssuer, stamper pdf.Stamper, storageClient storage.Client, logger *zap.Logger, config WorkerConfig) *Worker {
	return &Worker{
		repo:     repo,
		verifier: verifier,
		stamper:  stamper,
		storage:  storageClient,
		logger:   logger,
		config:   config,
		done:     make(chan struct{}),
	}
}

// Start starts the stamp worker
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting stamp worker",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Process any pending jobs immediately
	w.processQueued(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stamp worker shutting down")
			return nil
		case <-w.done:
			w.logger.Info("Stamp worker stopped")
			return nil
		case <-ticker.C:
			w.processQueued(ctx)
		}
	}
}

// Stop stops the worker
func (w *Worker) Stop() {
	close(w.done)
}

func (w *Worker) processQueued(ctx context.Context) {
	jobs, err := w.repo.ClaimBatch(ctx, w.config.BatchSize, w.config.MaxAttempts, time.Now().Add(-w.config.StaleAfter))
	if err != nil {
		w.logger.Error("Failed to claim stamp jobs", zap.Error(err))
		return
	}

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			w.logger.Warn("Stamp job failed",
				zap.String("job_id", job.ID.String()),
				zap.String("submission_id", job.SubmissionID.String()),
				zap.Error(err))
			if markErr := w.repo.MarkFailed(ctx, job.ID, err.Error(), w.config.MaxAttempts); markErr != nil {
				w.logger.Error("Failed to mark stamp job failed", zap.Error(markErr))
			}
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job StampJob) error {
	detail, err := w.repo.GetJobDetail(ctx, job.SubmissionID)
	if err != nil {
		return fmt.Errorf("load job detail: %w", err)
	}
	if detail == nil {
		return fmt.Errorf("submission %s no longer exists", job.SubmissionID)
	}

	token, err := w.verifier.EnsureToken(ctx, job.SubmissionID)
	if err != nil {
		return err
	}

	data := pdf.StampData{
		Title:           detail.Title,
		SubmissionID:    detail.SubmissionID.String(),
		DivisionName:    detail.DivisionName,
		VerificationURL: w.verifier.URL(token),
	}
	if detail.ApprovedBy != nil {
		data.ApprovedBy = *detail.ApprovedBy
	}
	if detail.ApprovedAt != nil {
		data.ApprovedAt = *detail.ApprovedAt
	}
	if detail.ApprovalNote != nil {
		data.Note = *detail.ApprovalNote
	}

	sheet, err := w.stamper.RenderStamp(ctx, data)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("stamps/%s.pdf", job.SubmissionID)
	if err := w.storage.Upload(ctx, w.config.Bucket, key, sheet); err != nil {
		return fmt.Errorf("store stamp sheet: %w", err)
	}

	if err := w.repo.MarkDone(ctx, job.ID, key); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}

	w.logger.Info("Stamp sheet rendered",
		zap.String("submission_id", job.SubmissionID.String()),
		zap.String("stamp_key", key))

	return nil
}
