package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoir/comptoir/internal/catalog"
	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/shared"
	"github.com/comptoir/comptoir/internal/stock"
)

// Notifier receives domain events after the owning transaction has committed.
// Delivery is best effort and must never fail the billing operation.
type Notifier interface {
	BillCreated(ctx context.Context, bill Bill)
	StockAlertRaised(ctx context.Context, alert stock.Alert)
}

type Service struct {
	logger   *slog.Logger
	repo     Repository
	notifier Notifier
	locker   *shared.AccountLocker
}

func NewService(logger *slog.Logger, repo Repository, notifier Notifier, locker *shared.AccountLocker) *Service {
	return &Service{logger: logger, repo: repo, notifier: notifier, locker: locker}
}

// Create builds a bill from the requested line items in a single transaction.
// Every product row is locked before its stock is checked, so either all lines
// commit with their stock decremented or nothing is written at all.
func (s *Service) Create(ctx context.Context, clientID int64, req CreateBillRequest) (*Bill, error) {
	var created *Bill
	var alerts []stock.Alert

	attempt := func() error {
		alerts = alerts[:0]
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			number, err := nextBillNumber(ctx, tx, time.Now())
			if err != nil {
				return err
			}

			bill := Bill{
				ClientID:       clientID,
				BillNumber:     number,
				TotalAmount:    decimal.Zero,
				TotalPaid:      decimal.Zero,
				TotalRemaining: decimal.Zero,
				Status:         StatusNotPaid,
				DeliveryStatus: DeliveryNotDelivered,
			}
			billID, err := tx.InsertBill(ctx, bill)
			if err != nil {
				return err
			}
			bill.ID = billID

			for _, line := range req.Items {
				product, err := tx.GetProductForUpdate(ctx, line.ProductID)
				if err != nil {
					if errors.Is(err, httpx.ErrNotFound) {
						return fmt.Errorf("%w: product %d does not exist", httpx.ErrNotFound, line.ProductID)
					}
					return err
				}
				if !product.IsActive {
					return fmt.Errorf("%w: product %q is no longer available", httpx.ErrInvalidState, product.Name)
				}
				if product.QuantityInStock < line.Quantity {
					return fmt.Errorf("%w: product %q has %d units available, %d requested",
						httpx.ErrInsufficient, product.Name, product.QuantityInStock, line.Quantity)
				}
				if err := validateSelection(product.Variants, line.SelectedVariants); err != nil {
					return err
				}

				qty := decimal.NewFromInt(int64(line.Quantity))
				item := BillItem{
					BillID:           billID,
					ProductID:        &product.ID,
					ProductName:      snapshotName(product.Name, line.SelectedVariants),
					UnitPrice:        product.Price,
					Quantity:         line.Quantity,
					Subtotal:         product.Price.Mul(qty),
					SelectedVariants: line.SelectedVariants,
				}
				itemID, err := tx.InsertItem(ctx, item)
				if err != nil {
					return err
				}
				item.ID = itemID
				bill.Items = append(bill.Items, item)
				bill.TotalAmount = bill.TotalAmount.Add(item.Subtotal)

				remaining := product.QuantityInStock - line.Quantity
				if err := tx.SetProductStock(ctx, product.ID, remaining); err != nil {
					return err
				}
				state := product.StockState()
				state.QuantityInStock = remaining
				alert, err := stock.Reconcile(ctx, tx.Alerts(), state)
				if err != nil {
					return err
				}
				if alert != nil {
					alerts = append(alerts, *alert)
				}
			}

			bill.SetTotalPaid(decimal.Zero)
			if err := tx.UpdateTotals(ctx, bill); err != nil {
				return err
			}
			created = &bill
			return nil
		})
	}

	err := attempt()
	if IsUniqueViolation(err) {
		// Another bill claimed the same sequence number; recount and retry once.
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.BillCreated(ctx, *created)
		for _, alert := range alerts {
			s.notifier.StockAlertRaised(ctx, alert)
		}
	}
	return s.repo.Get(ctx, created.ID)
}

// Pay records an additional amount against the bill and recomputes its status.
func (s *Service) Pay(ctx context.Context, billID int64, amount decimal.Decimal) (*Bill, error) {
	if amount.IsNegative() || amount.IsZero() {
		return nil, fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	}
	return s.mutateLocked(ctx, billID, func(bill *Bill) error {
		if bill.Status == StatusPaid {
			return fmt.Errorf("%w: bill %s is already fully paid", httpx.ErrInvalidState, bill.BillNumber)
		}
		if amount.GreaterThan(bill.TotalRemaining) {
			return fmt.Errorf("%w: payment of %s exceeds remaining balance of %s",
				httpx.ErrValidation, amount.StringFixed(2), bill.TotalRemaining.StringFixed(2))
		}
		bill.SetTotalPaid(bill.TotalPaid.Add(amount))
		return nil
	})
}

// CorrectTotalPaid overwrites the recorded paid amount, for fixing data-entry
// mistakes. Remaining balance and status are derived from the new value.
func (s *Service) CorrectTotalPaid(ctx context.Context, billID int64, totalPaid decimal.Decimal) (*Bill, error) {
	if totalPaid.IsNegative() {
		return nil, fmt.Errorf("%w: total paid cannot be negative", httpx.ErrValidation)
	}
	return s.mutateLocked(ctx, billID, func(bill *Bill) error {
		if totalPaid.GreaterThan(bill.TotalAmount) {
			return fmt.Errorf("%w: total paid of %s exceeds bill amount of %s",
				httpx.ErrValidation, totalPaid.StringFixed(2), bill.TotalAmount.StringFixed(2))
		}
		bill.SetTotalPaid(totalPaid)
		return nil
	})
}

// SetDeliveryStatus moves the bill along the delivery lifecycle. Cancelling a
// bill never touches its amounts; money corrections go through payments.
func (s *Service) SetDeliveryStatus(ctx context.Context, billID int64, next DeliveryStatus) (*Bill, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown delivery status %q", httpx.ErrValidation, next)
	}
	var updated *Bill
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		bill, err := tx.GetForUpdate(ctx, billID)
		if err != nil {
			return err
		}
		if !bill.DeliveryStatus.CanTransitionTo(next) {
			return fmt.Errorf("%w: cannot move delivery from %q to %q",
				httpx.ErrInvalidState, bill.DeliveryStatus, next)
		}
		if err := tx.UpdateDeliveryStatus(ctx, billID, next); err != nil {
			return err
		}
		bill.DeliveryStatus = next
		updated = &bill
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, billID int64) error {
	return s.repo.Delete(ctx, billID)
}

func (s *Service) Get(ctx context.Context, billID int64) (*Bill, error) {
	return s.repo.Get(ctx, billID)
}

func (s *Service) GetWithClient(ctx context.Context, billID int64) (*BillWithClient, error) {
	return s.repo.GetWithClient(ctx, billID)
}

func (s *Service) List(ctx context.Context, req ListBillsRequest) ([]BillWithClient, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) ListByClient(ctx context.Context, clientID int64, page, limit int) ([]Bill, error) {
	return s.repo.ListByClient(ctx, clientID, page, limit)
}

func (s *Service) CountByClient(ctx context.Context, clientID int64, status *Status) (int, error) {
	return s.repo.CountByClient(ctx, clientID, status)
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.repo.Summary(ctx)
}

func (s *Service) Statistics(ctx context.Context, req StatisticsRequest) ([]PeriodSummary, error) {
	return s.repo.Statistics(ctx, req)
}

// mutateLocked serializes money mutations per client: the bill's owner is
// looked up first, then the client account lock is held for the transaction.
func (s *Service) mutateLocked(ctx context.Context, billID int64, mutate func(*Bill) error) (*Bill, error) {
	current, err := s.repo.Get(ctx, billID)
	if err != nil {
		return nil, err
	}

	var updated *Bill
	err = s.locker.WithLock(ctx, current.ClientID, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			bill, err := tx.GetForUpdate(ctx, billID)
			if err != nil {
				return err
			}
			if err := mutate(&bill); err != nil {
				return err
			}
			if err := tx.UpdateTotals(ctx, bill); err != nil {
				return err
			}
			updated = &bill
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	updated.Items = current.Items
	return updated, nil
}

// nextBillNumber assigns BILL-YYYYMMDD-NNNN where NNNN restarts every day.
func nextBillNumber(ctx context.Context, tx TxRepository, now time.Time) (string, error) {
	count, err := tx.CountCreatedOn(ctx, now)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("BILL-%s-%04d", now.Format("20060102"), count+1), nil
}

func validateSelection(variant *catalog.Variant, selected map[string]string) error {
	if len(selected) == 0 {
		return nil
	}
	if variant == nil {
		return fmt.Errorf("%w: product has no variants to select", httpx.ErrValidation)
	}
	for name, option := range selected {
		if name != variant.Type {
			return fmt.Errorf("%w: unknown variant %q", httpx.ErrValidation, name)
		}
		if !variant.HasOption(option) {
			return fmt.Errorf("%w: option %q is not available for variant %q",
				httpx.ErrValidation, option, name)
		}
	}
	return nil
}
