package stock

import (
	"context"
	"fmt"
	"time"
)

// Store is the alert persistence surface the engine mutates. Callers hand in a
// transaction-scoped store so alert changes commit or roll back with the stock
// mutation that caused them.
type Store interface {
	UnresolvedAlert(ctx context.Context, productID int64) (*Alert, error)
	ResolveAlert(ctx context.Context, alertID int64, at time.Time) error
	InsertAlert(ctx context.Context, alert Alert) (Alert, error)
}

// Reconcile brings the product's alert state in line with its current
// quantity. It returns the newly created alert, if any, so the caller can emit
// a notification after its transaction commits. An unchanged severity is a
// no-op to avoid alert churn.
func Reconcile(ctx context.Context, store Store, p ProductState) (*Alert, error) {
	existing, err := store.UnresolvedAlert(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("stock: fetch unresolved alert: %w", err)
	}

	severity := p.severity()
	if severity == "" {
		if existing != nil {
			if err := store.ResolveAlert(ctx, existing.ID, time.Now()); err != nil {
				return nil, fmt.Errorf("stock: resolve alert: %w", err)
			}
		}
		return nil, nil
	}

	if existing != nil && existing.AlertType == severity {
		return nil, nil
	}

	if existing != nil {
		if err := store.ResolveAlert(ctx, existing.ID, time.Now()); err != nil {
			return nil, fmt.Errorf("stock: resolve superseded alert: %w", err)
		}
	}

	created, err := store.InsertAlert(ctx, Alert{
		ProductID: p.ID,
		AlertType: severity,
		Message:   alertMessage(severity, p),
	})
	if err != nil {
		return nil, fmt.Errorf("stock: insert alert: %w", err)
	}
	return &created, nil
}

func alertMessage(severity AlertType, p ProductState) string {
	if severity == AlertOutOfStock {
		return fmt.Sprintf("CRITICAL: product %q is out of stock", p.Name)
	}
	return fmt.Sprintf("WARNING: product %q is low on stock (%d units left, minimum %d)",
		p.Name, p.QuantityInStock, p.MinimumStockLevel)
}
