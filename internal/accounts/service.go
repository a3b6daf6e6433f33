package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/comptoir/comptoir/internal/billing"
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

func (s *Service) Create(ctx context.Context, req CreateAccountRequest) (*AccountWithClient, error) {
	if req.TotalAmount.IsNegative() || req.TotalPaid.IsNegative() ||
		req.TotalRemaining.IsNegative() || req.TotalCredit.IsNegative() {
		return nil, fmt.Errorf("%w: account totals cannot be negative", httpx.ErrValidation)
	}

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.ClientExists(ctx, req.ClientID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: client %d does not exist", httpx.ErrNotFound, req.ClientID)
		}
		switch _, err := tx.GetByClientForUpdate(ctx, req.ClientID); {
		case err == nil:
			return fmt.Errorf("%w: client %d already has an account", httpx.ErrDuplicate, req.ClientID)
		case !isNotFound(err):
			return err
		}

		id, err = tx.Insert(ctx, Account{
			ClientID:       req.ClientID,
			TotalAmount:    req.TotalAmount,
			TotalPaid:      req.TotalPaid,
			TotalRemaining: req.TotalRemaining,
			TotalCredit:    req.TotalCredit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*AccountWithClient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByClient(ctx context.Context, clientID int64) (*AccountWithClient, error) {
	return s.repo.GetByClient(ctx, clientID)
}

func (s *Service) List(ctx context.Context, page, limit int) ([]AccountWithClient, int, error) {
	return s.repo.List(ctx, page, limit)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Update stores credit changes directly. Setting TotalRemaining instead
// triggers a full reconciliation of the client's bill ledger against the
// stated balance.
func (s *Service) Update(ctx context.Context, id int64, req UpdateAccountRequest) (*AccountWithClient, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.TotalRemaining != nil {
		if req.TotalRemaining.IsNegative() {
			return nil, fmt.Errorf("%w: total remaining cannot be negative", httpx.ErrValidation)
		}
		err = s.locker.WithLock(ctx, current.ClientID, func(ctx context.Context) error {
			return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
				return s.reconcile(ctx, tx, id, *req.TotalRemaining, req.TotalCredit)
			})
		})
	} else if req.TotalCredit != nil {
		if req.TotalCredit.IsNegative() {
			return nil, fmt.Errorf("%w: total credit cannot be negative", httpx.ErrValidation)
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			account, err := tx.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			account.TotalCredit = *req.TotalCredit
			return tx.UpdateTotals(ctx, account)
		})
	}
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// reconcile rewrites the client's bill payments so the ledger sums to the
// stated remaining balance.
//
// Any open outside bill from a prior adjustment is dropped first. When the
// stated balance exceeds the tracked bills, the client owes money for
// purchases recorded outside the system: a fresh outside-purchase bill covers
// the excess and every tracked bill resets to unpaid. Otherwise the implied
// paid amount is allocated across the tracked bills oldest first.
func (s *Service) reconcile(ctx context.Context, tx TxRepository, id int64, newRemaining decimal.Decimal, credit *decimal.Decimal) error {
	account, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return err
	}

	open, err := tx.OpenBills(ctx, account.ClientID, true)
	if err != nil {
		return err
	}
	billsTotal := decimal.Zero
	for _, b := range open {
		billsTotal = billsTotal.Add(b.TotalAmount)
	}

	// Any open outside bill from a prior adjustment is superseded: the excess
	// is re-derived below, so a stale one would double-count against the ledger.
	outside, err := tx.FindOpenOutsideBill(ctx, account.ClientID)
	if err != nil {
		return err
	}
	if outside != nil {
		if err := tx.DeleteBill(ctx, outside.ID); err != nil {
			return err
		}
	}

	if newRemaining.GreaterThan(billsTotal) {
		excess := newRemaining.Sub(billsTotal)
		synthetic := billing.Bill{
			ClientID:       account.ClientID,
			BillNumber:     outsideBillNumber(time.Now()),
			TotalAmount:    excess,
			TotalPaid:      decimal.Zero,
			TotalRemaining: excess,
			Status:         billing.StatusNotPaid,
			DeliveryStatus: billing.DeliveryNotDelivered,
		}
		if _, err := tx.InsertBill(ctx, synthetic); err != nil {
			return err
		}
		for i := range open {
			open[i].SetTotalPaid(decimal.Zero)
			if err := tx.UpdateBillTotals(ctx, open[i]); err != nil {
				return err
			}
		}

		account.TotalAmount = billsTotal.Add(excess)
		account.TotalPaid = decimal.Zero
		account.TotalRemaining = newRemaining
	} else {
		paid := billsTotal.Sub(newRemaining)
		if paid.IsNegative() {
			paid = decimal.Zero
		}

		toApply := paid
		openAmount := decimal.Zero
		for i := range open {
			bill := &open[i]
			switch {
			case toApply.GreaterThanOrEqual(bill.TotalAmount):
				bill.SetTotalPaid(bill.TotalAmount)
				toApply = toApply.Sub(bill.TotalAmount)
			case toApply.IsPositive():
				bill.SetTotalPaid(toApply)
				toApply = decimal.Zero
			default:
				bill.SetTotalPaid(decimal.Zero)
			}
			if err := tx.UpdateBillTotals(ctx, *bill); err != nil {
				return err
			}
			if bill.Status != billing.StatusPaid {
				openAmount = openAmount.Add(bill.TotalAmount)
			}
		}

		account.TotalAmount = openAmount
		account.TotalPaid = paid
		account.TotalRemaining = newRemaining
	}

	if credit != nil {
		if credit.IsNegative() {
			return fmt.Errorf("%w: total credit cannot be negative", httpx.ErrValidation)
		}
		account.TotalCredit = *credit
	}
	return tx.UpdateTotals(ctx, account)
}

// Recalculate rebuilds the account totals from the client's open bills
// without touching any bill. The account is created when missing. Running it
// twice in a row yields the same totals.
func (s *Service) Recalculate(ctx context.Context, clientID int64) (*AccountWithClient, error) {
	var err = s.locker.WithLock(ctx, clientID, func(ctx context.Context) error {
		return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			account, err := tx.GetByClientForUpdate(ctx, clientID)
			if err != nil {
				if !isNotFound(err) {
					return err
				}
				exists, err := tx.ClientExists(ctx, clientID)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("%w: client %d does not exist", httpx.ErrNotFound, clientID)
				}
				id, err := tx.Insert(ctx, Account{ClientID: clientID})
				if err != nil {
					return err
				}
				account, err = tx.GetForUpdate(ctx, id)
				if err != nil {
					return err
				}
			}

			open, err := tx.OpenBills(ctx, clientID, false)
			if err != nil {
				return err
			}
			amount, paid, remaining := decimal.Zero, decimal.Zero, decimal.Zero
			for _, b := range open {
				amount = amount.Add(b.TotalAmount)
				paid = paid.Add(b.TotalPaid)
				remaining = remaining.Add(b.TotalRemaining)
			}

			account.TotalAmount = amount
			account.TotalPaid = paid
			account.TotalRemaining = remaining
			return tx.UpdateTotals(ctx, account)
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByClient(ctx, clientID)
}

func outsideBillNumber(now time.Time) string {
	fragment := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("%s%s-%s", billing.OutsideBillPrefix, now.Format("20060102"), fragment)
}

func isNotFound(err error) bool {
	return errors.Is(err, httpx.ErrNotFound)
}
