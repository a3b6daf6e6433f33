package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir/comptoir/internal/billing"
	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/shared"
)

type memoryRepo struct {
	accounts map[int64]*Account
	bills    map[int64]*billing.Bill
	clients  map[int64]bool
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts: make(map[int64]*Account),
		bills:    make(map[int64]*billing.Bill),
		clients:  map[int64]bool{7: true},
	}
}

func (r *memoryRepo) snapshot() (map[int64]*Account, map[int64]*billing.Bill) {
	accounts := make(map[int64]*Account, len(r.accounts))
	for id, a := range r.accounts {
		copied := *a
		accounts[id] = &copied
	}
	bills := make(map[int64]*billing.Bill, len(r.bills))
	for id, b := range r.bills {
		copied := *b
		bills[id] = &copied
	}
	return accounts, bills
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	accounts, bills := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.accounts, r.bills = accounts, bills
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*AccountWithClient, error) {
	a, ok := r.accounts[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return &AccountWithClient{Account: *a, ClientName: "client"}, nil
}

func (r *memoryRepo) GetByClient(ctx context.Context, clientID int64) (*AccountWithClient, error) {
	for _, a := range r.accounts {
		if a.ClientID == clientID {
			return &AccountWithClient{Account: *a, ClientName: "client"}, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, page, limit int) ([]AccountWithClient, int, error) {
	var out []AccountWithClient
	for _, a := range r.accounts {
		out = append(out, AccountWithClient{Account: *a})
	}
	return out, len(out), nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.accounts[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *memoryRepo) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	return r.clients[clientID], nil
}

func (r *memoryRepo) Insert(ctx context.Context, a Account) (int64, error) {
	r.nextID++
	a.ID = r.nextID
	a.CreatedAt = time.Now()
	r.accounts[a.ID] = &a
	return a.ID, nil
}

func (r *memoryRepo) GetForUpdate(ctx context.Context, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, httpx.ErrNotFound
	}
	return *a, nil
}

func (r *memoryRepo) GetByClientForUpdate(ctx context.Context, clientID int64) (Account, error) {
	for _, a := range r.accounts {
		if a.ClientID == clientID {
			return *a, nil
		}
	}
	return Account{}, httpx.ErrNotFound
}

func (r *memoryRepo) UpdateTotals(ctx context.Context, a Account) error {
	stored, ok := r.accounts[a.ID]
	if !ok {
		return httpx.ErrNotFound
	}
	stored.TotalAmount = a.TotalAmount
	stored.TotalPaid = a.TotalPaid
	stored.TotalRemaining = a.TotalRemaining
	stored.TotalCredit = a.TotalCredit
	return nil
}

func (r *memoryRepo) OpenBills(ctx context.Context, clientID int64, excludeOutside bool) ([]billing.Bill, error) {
	var out []billing.Bill
	for _, b := range r.bills {
		if b.ClientID != clientID || b.Status == billing.StatusPaid {
			continue
		}
		if excludeOutside && b.IsOutside() {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepo) FindOpenOutsideBill(ctx context.Context, clientID int64) (*billing.Bill, error) {
	for _, b := range r.bills {
		if b.ClientID == clientID && b.Status != billing.StatusPaid && b.IsOutside() {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) InsertBill(ctx context.Context, bill billing.Bill) (int64, error) {
	r.nextID++
	bill.ID = r.nextID
	bill.CreatedAt = time.Now()
	r.bills[bill.ID] = &bill
	return bill.ID, nil
}

func (r *memoryRepo) DeleteBill(ctx context.Context, billID int64) error {
	delete(r.bills, billID)
	return nil
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

func seedBill(repo *memoryRepo, id int64, amount string, age time.Duration) {
	total := decimal.RequireFromString(amount)
	repo.bills[id] = &billing.Bill{
		ID:             id,
		ClientID:       7,
		BillNumber:     fmt.Sprintf("BILL-20260828-%04d", id),
		TotalAmount:    total,
		TotalRemaining: total,
		Status:         billing.StatusNotPaid,
		CreatedAt:      time.Now().Add(-age),
	}
	if id >= repo.nextID {
		repo.nextID = id
	}
}

func seedAccount(repo *memoryRepo) int64 {
	repo.nextID++
	id := repo.nextID
	repo.accounts[id] = &Account{ID: id, ClientID: 7, CreatedAt: time.Now()}
	return id
}

func testService(repo *memoryRepo) *Service {
	return NewService(slog.Default(), repo, shared.NewAccountLocker(nil, time.Second))
}

func remaining(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestUpdateRemainingAllocatesOldestFirst(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100", 2*time.Hour)
	seedBill(repo, 2, "200", time.Hour)
	accountID := seedAccount(repo)
	service := testService(repo)

	account, err := service.Update(context.Background(), accountID,
		UpdateAccountRequest{TotalRemaining: remaining("150")})
	require.NoError(t, err)

	// 300 owed, 150 stated remaining: 150 paid, oldest bill absorbed first.
	bill1, bill2 := repo.bills[1], repo.bills[2]
	require.Equal(t, billing.StatusPaid, bill1.Status)
	require.True(t, bill1.TotalPaid.Equal(decimal.RequireFromString("100")))
	require.Equal(t, billing.StatusPartiallyPaid, bill2.Status)
	require.True(t, bill2.TotalPaid.Equal(decimal.RequireFromString("50")))
	require.True(t, bill2.TotalRemaining.Equal(decimal.RequireFromString("150")))

	// The fully paid bill drops out of the account aggregate.
	require.True(t, account.TotalAmount.Equal(decimal.RequireFromString("200")))
	require.True(t, account.TotalPaid.Equal(decimal.RequireFromString("150")))
	require.True(t, account.TotalRemaining.Equal(decimal.RequireFromString("150")))
}

func TestUpdateRemainingCreatesOutsideBill(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100", 2*time.Hour)
	seedBill(repo, 2, "200", time.Hour)
	accountID := seedAccount(repo)
	service := testService(repo)

	account, err := service.Update(context.Background(), accountID,
		UpdateAccountRequest{TotalRemaining: remaining("350")})
	require.NoError(t, err)

	// The 50 excess over the tracked 300 becomes an outside-purchase bill.
	var outside *billing.Bill
	for _, b := range repo.bills {
		if b.IsOutside() {
			outside = b
		}
	}
	require.NotNil(t, outside)
	require.True(t, outside.TotalAmount.Equal(decimal.RequireFromString("50")))
	require.Equal(t, billing.StatusNotPaid, outside.Status)

	// Every tracked bill resets to unpaid.
	require.Equal(t, billing.StatusNotPaid, repo.bills[1].Status)
	require.True(t, repo.bills[1].TotalPaid.IsZero())
	require.Equal(t, billing.StatusNotPaid, repo.bills[2].Status)

	require.True(t, account.TotalAmount.Equal(decimal.RequireFromString("350")))
	require.True(t, account.TotalPaid.IsZero())
	require.True(t, account.TotalRemaining.Equal(decimal.RequireFromString("350")))
}

func TestUpdateRemainingReplacesOutsideBill(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100", time.Hour)
	accountID := seedAccount(repo)
	service := testService(repo)
	ctx := context.Background()

	_, err := service.Update(ctx, accountID, UpdateAccountRequest{TotalRemaining: remaining("150")})
	require.NoError(t, err)

	account, err := service.Update(ctx, accountID, UpdateAccountRequest{TotalRemaining: remaining("180")})
	require.NoError(t, err)

	// The second adjustment supersedes the first outside bill instead of
	// stacking a new one next to it.
	var outside []*billing.Bill
	ledger := decimal.Zero
	for _, b := range repo.bills {
		if b.IsOutside() {
			outside = append(outside, b)
		}
		ledger = ledger.Add(b.TotalRemaining)
	}
	require.Len(t, outside, 1)
	require.True(t, outside[0].TotalAmount.Equal(decimal.RequireFromString("80")))

	require.True(t, account.TotalRemaining.Equal(decimal.RequireFromString("180")))
	// The account agrees with its own open-bill ledger.
	require.True(t, ledger.Equal(account.TotalRemaining))

	// Recalculate confirms the same totals rather than flipping them.
	recalced, err := service.Recalculate(ctx, 7)
	require.NoError(t, err)
	require.True(t, recalced.TotalAmount.Equal(account.TotalAmount))
	require.True(t, recalced.TotalPaid.Equal(account.TotalPaid))
	require.True(t, recalced.TotalRemaining.Equal(account.TotalRemaining))
}

func TestUpdateRemainingRemovesOutsideBill(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100", 2*time.Hour)
	seedBill(repo, 2, "200", time.Hour)
	accountID := seedAccount(repo)
	service := testService(repo)
	ctx := context.Background()

	_, err := service.Update(ctx, accountID, UpdateAccountRequest{TotalRemaining: remaining("350")})
	require.NoError(t, err)

	account, err := service.Update(ctx, accountID, UpdateAccountRequest{TotalRemaining: remaining("250")})
	require.NoError(t, err)

	// Back inside the tracked total: the outside bill is gone and 50 of
	// payment lands on the oldest bill.
	for _, b := range repo.bills {
		require.False(t, b.IsOutside())
	}
	require.Equal(t, billing.StatusPartiallyPaid, repo.bills[1].Status)
	require.True(t, repo.bills[1].TotalPaid.Equal(decimal.RequireFromString("50")))
	require.Equal(t, billing.StatusNotPaid, repo.bills[2].Status)

	require.True(t, account.TotalAmount.Equal(decimal.RequireFromString("300")))
	require.True(t, account.TotalPaid.Equal(decimal.RequireFromString("50")))
	require.True(t, account.TotalRemaining.Equal(decimal.RequireFromString("250")))
}

func TestUpdateRemainingNegativeRejected(t *testing.T) {
	repo := newMemoryRepo()
	accountID := seedAccount(repo)
	service := testService(repo)

	_, err := service.Update(context.Background(), accountID,
		UpdateAccountRequest{TotalRemaining: remaining("-5")})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateCreditOnly(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100", time.Hour)
	accountID := seedAccount(repo)
	service := testService(repo)

	account, err := service.Update(context.Background(), accountID,
		UpdateAccountRequest{TotalCredit: remaining("25")})
	require.NoError(t, err)
	require.True(t, account.TotalCredit.Equal(decimal.RequireFromString("25")))

	// Credit updates never touch the bills.
	require.Equal(t, billing.StatusNotPaid, repo.bills[1].Status)
	require.True(t, repo.bills[1].TotalPaid.IsZero())
}

func TestRecalculateSyncsFromBills(t *testing.T) {
	repo := newMemoryRepo()
	seedBill(repo, 1, "100", 2*time.Hour)
	seedBill(repo, 2, "200", time.Hour)
	repo.bills[2].SetTotalPaid(decimal.RequireFromString("50"))
	// A fully paid bill is ignored.
	seedBill(repo, 3, "999", 3*time.Hour)
	repo.bills[3].SetTotalPaid(decimal.RequireFromString("999"))
	service := testService(repo)

	// No account exists yet; recalculate creates one.
	account, err := service.Recalculate(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, account.TotalAmount.Equal(decimal.RequireFromString("300")))
	require.True(t, account.TotalPaid.Equal(decimal.RequireFromString("50")))
	require.True(t, account.TotalRemaining.Equal(decimal.RequireFromString("250")))

	// Running it again changes nothing.
	again, err := service.Recalculate(context.Background(), 7)
	require.NoError(t, err)
	require.True(t, again.TotalAmount.Equal(account.TotalAmount))
	require.True(t, again.TotalPaid.Equal(account.TotalPaid))
	require.True(t, again.TotalRemaining.Equal(account.TotalRemaining))
}

func TestRecalculateUnknownClient(t *testing.T) {
	repo := newMemoryRepo()
	service := testService(repo)

	_, err := service.Recalculate(context.Background(), 99)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateAccountDuplicateRejected(t *testing.T) {
	repo := newMemoryRepo()
	service := testService(repo)
	ctx := context.Background()

	_, err := service.Create(ctx, CreateAccountRequest{ClientID: 7})
	require.NoError(t, err)

	_, err = service.Create(ctx, CreateAccountRequest{ClientID: 7})
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateAccountUnknownClient(t *testing.T) {
	repo := newMemoryRepo()
	service := testService(repo)

	_, err := service.Create(context.Background(), CreateAccountRequest{ClientID: 42})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
