package notifications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/internal/apperrors"
)

// Service records and fans out in-app notifications. Delivery is best
// effort: publishing never fails the transition that triggered it.
type Service struct {
	repo   Repository
	hub    *Hub
	logger *zap.Logger
}

func NewService(repo Repository, hub *Hub, logger *zap.Logger) *Service {
	return &Service{repo: repo, hub: hub, logger: logger}
}

// Publish fans one submission lifecycle event out to its recipients: the
// owning division's members for arrivals, the creator for decisions.
func (s *Service) Publish(ctx context.Context, event Event) {
	recipients, err := s.recipients(ctx, event)
	if err != nil {
		s.logger.Warn("Failed to resolve notification recipients",
			zap.String("submission_id", event.SubmissionID.String()),
			zap.Error(err))
		return
	}

	subject, body := render(event)
	for _, userID := range recipients {
		notification := &Notification{
			ID:           uuid.New(),
			UserID:       userID,
			SubmissionID: event.SubmissionID,
			Kind:         event.Kind,
			Subject:      subject,
			Body:         body,
		}
		if err := s.repo.Insert(ctx, notification); err != nil {
			s.logger.Warn("Failed to store notification",
				zap.String("user_id", userID.String()),
				zap.Error(err))
			continue
		}

		if s.hub != nil {
			payload, _ := json.Marshal(notification)
			s.hub.Send(userID, WSMessage{
				Type:      event.Kind,
				Payload:   payload,
				Timestamp: time.Now(),
			})
		}
	}
}

func (s *Service) recipients(ctx context.Context, event Event) ([]uuid.UUID, error) {
	switch event.Kind {
	case KindApproved, KindRejected:
		return []uuid.UUID{event.CreatorID}, nil
	case KindReceived, KindForwarded:
		return s.repo.ListUserIDsByDivision(ctx, event.DivisionID)
	default:
		return nil, fmt.Errorf("unknown notification kind %q", event.Kind)
	}
}

func render(event Event) (subject, body string) {
	switch event.Kind {
	case KindReceived:
		return "Submission awaiting your division",
			fmt.Sprintf("%q is waiting for your division to act.", event.Title)
	case KindForwarded:
		return "Submission forwarded to your division",
			fmt.Sprintf("%q was forwarded by %s and now waits for your division.", event.Title, event.ActorName)
	case KindApproved:
		return "Submission approved",
			fmt.Sprintf("%q received its final approval from %s.", event.Title, event.ActorName)
	case KindRejected:
		if event.Note != "" {
			return "Submission rejected",
				fmt.Sprintf("%q was rejected by %s: %s", event.Title, event.ActorName, event.Note)
		}
		return "Submission rejected",
			fmt.Sprintf("%q was rejected by %s.", event.Title, event.ActorName)
	default:
		return event.Kind, event.Title
	}
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("notification %s: %w", id, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
