package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/shared"
)

type Service struct {
	logger *slog.Logger
	repo   Repository
	locker *shared.AccountLocker
}

func NewService(logger *slog.Logger, repo Repository, locker *shared.AccountLocker) *Service {
	return &Service{logger: logger, repo: repo, locker: locker}
}

// Create records a payment on behalf of adminID and applies it to the bill.
// The amount may never exceed the bill's remaining balance; overpayments are
// corrections and go through the bill endpoints instead.
func (s *Service) Create(ctx context.Context, adminID int64, req CreatePaymentRequest) (*Payment, error) {
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
	}
	if !req.Method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", httpx.ErrValidation, req.Method)
	}

	owner, err := s.repo.GetBill(ctx, req.BillID)
	if err != nil {
		return nil, err
	}

	var created *Payment
	err = s.locker.WithLock(ctx, owner.ClientID, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			bill, err := tx.GetBillForUpdate(ctx, req.BillID)
			if err != nil {
				return err
			}
			if req.Amount.GreaterThan(bill.TotalRemaining) {
				return fmt.Errorf("%w: payment of %s exceeds remaining balance of %s",
					httpx.ErrInsufficient, req.Amount.StringFixed(2), bill.TotalRemaining.StringFixed(2))
			}

			paymentDate := time.Now()
			if req.PaymentDate != nil {
				paymentDate = *req.PaymentDate
			}
			p := Payment{
				BillID:      bill.ID,
				AdminID:     adminID,
				Amount:      req.Amount,
				Method:      req.Method,
				Note:        req.Note,
				PaymentDate: paymentDate,
			}
			id, err := tx.Insert(ctx, p)
			if err != nil {
				return err
			}
			p.ID = id

			bill.SetTotalPaid(bill.TotalPaid.Add(req.Amount))
			if err := tx.UpdateBillTotals(ctx, bill); err != nil {
				return err
			}
			created = &p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, created.ID)
}

// Update amends a payment. The old amount is reversed off the bill and the
// new one applied, as if the entry had been recorded correctly from the start.
func (s *Service) Update(ctx context.Context, id int64, req UpdatePaymentRequest) (*Payment, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.repo.GetBill(ctx, current.BillID)
	if err != nil {
		return nil, err
	}

	err = s.locker.WithLock(ctx, owner.ClientID, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			bill, err := tx.GetBillForUpdate(ctx, p.BillID)
			if err != nil {
				return err
			}

			newAmount := p.Amount
			if req.Amount != nil {
				newAmount = *req.Amount
				if newAmount.IsNegative() || newAmount.IsZero() {
					return fmt.Errorf("%w: payment amount must be positive", httpx.ErrValidation)
				}
			}

			reversed := bill.TotalPaid.Sub(p.Amount)
			if newAmount.GreaterThan(bill.TotalAmount.Sub(reversed)) {
				return fmt.Errorf("%w: amended payment of %s exceeds the bill's open balance",
					httpx.ErrInsufficient, newAmount.StringFixed(2))
			}

			p.Amount = newAmount
			if req.Method != nil {
				if !req.Method.Valid() {
					return fmt.Errorf("%w: unknown payment method %q", httpx.ErrValidation, *req.Method)
				}
				p.Method = *req.Method
			}
			if req.Note != nil {
				p.Note = req.Note
			}
			if req.PaymentDate != nil {
				p.PaymentDate = *req.PaymentDate
			}
			if err := tx.Update(ctx, p); err != nil {
				return err
			}

			bill.SetTotalPaid(clampZero(reversed.Add(newAmount)))
			return tx.UpdateBillTotals(ctx, bill)
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a payment and reverses its amount off the bill. The bill's
// status is recomputed, so a fully-paid bill drops back to partially paid.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	owner, err := s.repo.GetBill(ctx, current.BillID)
	if err != nil {
		return err
	}

	return s.locker.WithLock(ctx, owner.ClientID, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			bill, err := tx.GetBillForUpdate(ctx, p.BillID)
			if err != nil {
				return err
			}
			if err := tx.Delete(ctx, id); err != nil {
				return err
			}

			bill.SetTotalPaid(clampZero(bill.TotalPaid.Sub(p.Amount)))
			return tx.UpdateBillTotals(ctx, bill)
		})
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, page, limit int) ([]Payment, int, error) {
	return s.repo.List(ctx, page, limit)
}

// BillHistory returns the bill with its full payment trail and the drift
// between the ledger sum and the bill's recorded total_paid.
func (s *Service) BillHistory(ctx context.Context, billID int64) (*BillHistory, error) {
	bill, err := s.repo.GetBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.ListByBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Payment{}
	}

	total := decimal.Zero
	for _, p := range list {
		total = total.Add(p.Amount)
	}
	return &BillHistory{
		Bill:          *bill,
		Payments:      list,
		PaymentsTotal: total,
		Drift:         bill.TotalPaid.Sub(total),
	}, nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
