package notify

import (
	"context"
	"log/slog"
)

const dispatchBatchSize = 100

type Service struct {
	logger  *slog.Logger
	repo    Repository
	enqueue Enqueuer
}

func NewService(logger *slog.Logger, repo Repository, enqueue Enqueuer) *Service {
	return &Service{logger: logger, repo: repo, enqueue: enqueue}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Notification, int, error) {
	return s.repo.List(ctx, filter)
}

// DispatchPending re-enqueues delivery for every unsent notification, in case
// earlier enqueues were lost. Returns how many were queued.
func (s *Service) DispatchPending(ctx context.Context) (int, error) {
	pending, err := s.repo.ListUnsent(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, n := range pending {
		if err := s.enqueue.EnqueueDelivery(ctx, n.ID); err != nil {
			s.logger.Error("dispatch pending: enqueue failed",
				slog.Int64("notification_id", n.ID), slog.Any("error", err))
			continue
		}
		queued++
	}
	return queued, nil
}
