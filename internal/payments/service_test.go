package payments

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir/comptoir/internal/billing"
	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/shared"
)

type memoryRepo struct {
	bills    map[int64]*billing.Bill
	payments map[int64]*Payment
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		bills:    make(map[int64]*billing.Bill),
		payments: make(map[int64]*Payment),
	}
}

func (r *memoryRepo) snapshot() (map[int64]*billing.Bill, map[int64]*Payment) {
	bills := make(map[int64]*billing.Bill, len(r.bills))
	for id, b := range r.bills {
		copied := *b
		bills[id] = &copied
	}
	payments := make(map[int64]*Payment, len(r.payments))
	for id, p := range r.payments {
		copied := *p
		payments[id] = &copied
	}
	return bills, payments
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	bills, payments := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.bills, r.payments = bills, payments
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memoryRepo) List(ctx context.Context, page, limit int) ([]Payment, int, error) {
	var out []Payment
	for _, p := range r.payments {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListByBill(ctx context.Context, billID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range r.payments {
		if p.BillID == billID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetBill(ctx context.Context, billID int64) (*billing.Bill, error) {
	b, ok := r.bills[billID]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *memoryRepo) Insert(ctx context.Context, p Payment) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.payments[p.ID] = &p
	return p.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, p Payment) error {
	stored, ok := r.payments[p.ID]
	if !ok {
		return httpx.ErrNotFound
	}
	stored.Amount = p.Amount
	stored.Method = p.Method
	stored.Note = p.Note
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.payments[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, id int64) (Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return Payment{}, httpx.ErrNotFound
	}
	return *p, nil
}

func (r *memoryRepo) GetBillForUpdate(ctx context.Context, billID int64) (billing.Bill, error) {
	b, ok := r.bills[billID]
	if !ok {
		return billing.Bill{}, httpx.ErrNotFound
	}
	return *b, nil
}

func (r *memoryRepo) UpdateBillTotals(ctx context.Context, bill billing.Bill) error {
	stored, ok := r.bills[bill.ID]
	if !ok {
		return httpx.ErrNotFound
	}
	stored.TotalPaid = bill.TotalPaid
	stored.TotalRemaining = bill.TotalRemaining
	stored.Status = bill.Status
	return nil
}

func seedBill(repo *memoryRepo, id int64, amount string) {
	total := decimal.RequireFromString(amount)
	repo.bills[id] = &billing.Bill{
		ID:             id,
		ClientID:       7,
		BillNumber:     "BILL-20260828-0001",
		TotalAmount:    total,
		TotalRemaining: total,
		Status:         billing.StatusNotPaid,
		CreatedAt:      time.Now(),
	}
}

func testService(repo *memoryRepo) *Service {
	return NewService(slog.Default(), repo, shared.NewAccountLocker(nil, time.Second))
}

func TestCreatePaymentAppliesToBill(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "200")
	service := testService(repo)

	p, err := service.Create(context.Background(), 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("80"), Method: MethodCash,
	})
	require.NoError(t, err)
	require.True(t, p.Amount.Equal(decimal.RequireFromString("80")))
	require.Equal(t, int64(1), p.AdminID)
	require.False(t, p.PaymentDate.IsZero())

	bill := repo.bills[1]
	require.True(t, bill.TotalPaid.Equal(decimal.RequireFromString("80")))
	require.True(t, bill.TotalRemaining.Equal(decimal.RequireFromString("120")))
	require.Equal(t, billing.StatusPartiallyPaid, bill.Status)
}

func TestCreatePaymentExceedingRemainingRejected(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100")
	service := testService(repo)
	ctx := context.Background()

	_, err := service.Create(ctx, 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("150"), Method: MethodCash,
	})
	require.ErrorIs(t, err, httpx.ErrInsufficient)

	// Nothing was recorded and the bill is untouched.
	require.Empty(t, repo.payments)
	require.True(t, repo.bills[1].TotalPaid.IsZero())
	require.Equal(t, billing.StatusNotPaid, repo.bills[1].Status)
}

func TestCreatePaymentValidation(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100")
	service := testService(repo)
	ctx := context.Background()

	_, err := service.Create(ctx, 1, CreatePaymentRequest{BillID: 1, Amount: decimal.Zero, Method: MethodCash})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = service.Create(ctx, 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("10"), Method: Method("barter"),
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdatePaymentReversesAndReapplies(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "200")
	service := testService(repo)
	ctx := context.Background()

	p, err := service.Create(ctx, 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("50"), Method: MethodCash,
	})
	require.NoError(t, err)

	newAmount := decimal.RequireFromString("120")
	updated, err := service.Update(ctx, p.ID, UpdatePaymentRequest{Amount: &newAmount})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(newAmount))

	bill := repo.bills[1]
	require.True(t, bill.TotalPaid.Equal(newAmount))
	require.True(t, bill.TotalRemaining.Equal(decimal.RequireFromString("80")))
	require.Equal(t, billing.StatusPartiallyPaid, bill.Status)
}

func TestUpdatePaymentCannotExceedOpenBalance(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100")
	service := testService(repo)
	ctx := context.Background()

	p, err := service.Create(ctx, 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("40"), Method: MethodCard,
	})
	require.NoError(t, err)

	tooMuch := decimal.RequireFromString("120")
	_, err = service.Update(ctx, p.ID, UpdatePaymentRequest{Amount: &tooMuch})
	require.ErrorIs(t, err, httpx.ErrInsufficient)

	// The original amount is still in effect.
	require.True(t, repo.bills[1].TotalPaid.Equal(decimal.RequireFromString("40")))
	require.True(t, repo.payments[p.ID].Amount.Equal(decimal.RequireFromString("40")))
}

func TestDeletePaymentReversesBillStatus(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100")
	service := testService(repo)
	ctx := context.Background()

	first, err := service.Create(ctx, 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("60"), Method: MethodCash,
	})
	require.NoError(t, err)
	second, err := service.Create(ctx, 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("40"), Method: MethodTransfer,
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusPaid, repo.bills[1].Status)

	// Deleting one entry drops the bill back to partially paid.
	require.NoError(t, service.Delete(ctx, second.ID))
	bill := repo.bills[1]
	require.Equal(t, billing.StatusPartiallyPaid, bill.Status)
	require.True(t, bill.TotalPaid.Equal(decimal.RequireFromString("60")))
	require.True(t, bill.TotalRemaining.Equal(decimal.RequireFromString("40")))

	require.NoError(t, service.Delete(ctx, first.ID))
	require.Equal(t, billing.StatusNotPaid, repo.bills[1].Status)
	require.True(t, repo.bills[1].TotalPaid.IsZero())
}

func TestBillHistoryReportsDrift(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "200")
	service := testService(repo)
	ctx := context.Background()

	_, err := service.Create(ctx, 1, CreatePaymentRequest{
		BillID: 1, Amount: decimal.RequireFromString("50"), Method: MethodCash,
	})
	require.NoError(t, err)

	// An out-of-band correction moves the bill without a ledger entry.
	repo.bills[1].SetTotalPaid(decimal.RequireFromString("70"))

	history, err := service.BillHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history.Payments, 1)
	require.True(t, history.PaymentsTotal.Equal(decimal.RequireFromString("50")))
	require.True(t, history.Drift.Equal(decimal.RequireFromString("20")))
}
