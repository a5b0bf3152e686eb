package reports

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Service provides aggregate reporting over submissions.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) DivisionSummaries(ctx context.Context, period Period) ([]DivisionSummary, error) {
	summaries, err := s.repo.GetDivisionSummaries(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to build division summaries: %w", err)
	}
	return summaries, nil
}

// ExportWorkbook builds the XLSX export for a period.
func (s *Service) ExportWorkbook(ctx context.Context, period Period) (io.ReadSeeker, error) {
	summaries, err := s.repo.GetDivisionSummaries(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to build division summaries: %w", err)
	}
	rows, err := s.repo.ListSubmissionRows(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	workbook, err := BuildWorkbook(summaries, rows)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Report workbook built",
		zap.Int("divisions", len(summaries)),
		zap.Int("submissions", len(rows)))

	return workbook, nil
}
