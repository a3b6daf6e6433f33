package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/comptoir/comptoir/internal/platform/httpx"
)

// Service exposes the alert read/resolve surface. Alert creation only happens
// through Reconcile inside the transactions that mutate stock.
type Service struct {
	store *SQLStore
}

// NewService builds the stock Service.
func NewService(store *SQLStore) *Service {
	return &Service{store: store}
}

// List returns alerts matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Alert, error) {
	return s.store.List(ctx, filter)
}

// Resolve marks an alert handled by an operator. Resolving an already-resolved
// alert is rejected.
func (s *Service) Resolve(ctx context.Context, id int64) (Alert, error) {
	alert, err := s.store.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, fmt.Errorf("%w: stock alert %d", httpx.ErrNotFound, id)
	}
	if err != nil {
		return Alert{}, fmt.Errorf("stock: get alert: %w", err)
	}
	if alert.IsResolved {
		return Alert{}, fmt.Errorf("%w: stock alert %d is already resolved", httpx.ErrInvalidState, id)
	}
	now := time.Now()
	if err := s.store.ResolveAlert(ctx, id, now); err != nil {
		return Alert{}, fmt.Errorf("stock: resolve alert: %w", err)
	}
	alert.IsResolved = true
	alert.ResolvedAt = &now
	return alert, nil
}
