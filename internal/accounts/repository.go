package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir/comptoir/internal/billing"
	"github.com/comptoir/comptoir/internal/platform/db"
	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/stock"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*AccountWithClient, error)
	GetByClient(ctx context.Context, clientID int64) (*AccountWithClient, error)
	List(ctx context.Context, page, limit int) ([]AccountWithClient, int, error)
	Delete(ctx context.Context, id int64) error
	ClientExists(ctx context.Context, clientID int64) (bool, error)
}

// TxRepository exposes the client's bill ledger alongside the account row so
// reconciliation rewrites both atomically.
type TxRepository interface {
	Insert(ctx context.Context, a Account) (int64, error)
	GetForUpdate(ctx context.Context, id int64) (Account, error)
	GetByClientForUpdate(ctx context.Context, clientID int64) (Account, error)
	UpdateTotals(ctx context.Context, a Account) error
	ClientExists(ctx context.Context, clientID int64) (bool, error)

	// OpenBills returns the client's bills with status other than paid,
	// oldest first, rows locked. Outside-purchase bills are excluded when
	// excludeOutside is set.
	OpenBills(ctx context.Context, clientID int64, excludeOutside bool) ([]billing.Bill, error)
	FindOpenOutsideBill(ctx context.Context, clientID int64) (*billing.Bill, error)
	InsertBill(ctx context.Context, bill billing.Bill) (int64, error)
	DeleteBill(ctx context.Context, billID int64) error
	UpdateBillTotals(ctx context.Context, bill billing.Bill) error
}

type repository struct {
	db   stock.Querier
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const accountColumns = `a.id, a.client_id, a.total_amount, a.total_paid, a.total_remaining,
	a.total_credit, a.created_at, a.updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*AccountWithClient, error) {
	return r.getWithClient(ctx, `a.id = $1`, id)
}

func (r *repository) GetByClient(ctx context.Context, clientID int64) (*AccountWithClient, error) {
	return r.getWithClient(ctx, `a.client_id = $1`, clientID)
}

func (r *repository) getWithClient(ctx context.Context, where string, arg any) (*AccountWithClient, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+accountColumns+`, c.username, c.email, c.phone_number, c.address
		 FROM client_accounts a JOIN clients c ON c.id = a.client_id
		 WHERE `+where, arg)
	var a AccountWithClient
	err := row.Scan(&a.ID, &a.ClientID, &a.TotalAmount, &a.TotalPaid, &a.TotalRemaining,
		&a.TotalCredit, &a.CreatedAt, &a.UpdatedAt,
		&a.ClientName, &a.ClientEmail, &a.ClientPhone, &a.ClientAddress)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) List(ctx context.Context, page, limit int) ([]AccountWithClient, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM client_accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+`, c.username, c.email, c.phone_number, c.address
		 FROM client_accounts a JOIN clients c ON c.id = a.client_id
		 ORDER BY a.total_remaining DESC, a.id
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []AccountWithClient
	for rows.Next() {
		var a AccountWithClient
		if err := rows.Scan(&a.ID, &a.ClientID, &a.TotalAmount, &a.TotalPaid, &a.TotalRemaining,
			&a.TotalCredit, &a.CreatedAt, &a.UpdatedAt,
			&a.ClientName, &a.ClientEmail, &a.ClientPhone, &a.ClientAddress); err != nil {
			return nil, 0, err
		}
		list = append(list, a)
	}
	return list, total, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM client_accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) ClientExists(ctx context.Context, clientID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, clientID).Scan(&exists)
	return exists, err
}

func (r *repository) Insert(ctx context.Context, a Account) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO client_accounts (client_id, total_amount, total_paid, total_remaining,
			total_credit, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING id`,
		a.ClientID, a.TotalAmount, a.TotalPaid, a.TotalRemaining, a.TotalCredit).Scan(&id)
	return id, err
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Account, error) {
	return r.accountRow(ctx, `id = $1`, id)
}

func (r *repository) GetByClientForUpdate(ctx context.Context, clientID int64) (Account, error) {
	return r.accountRow(ctx, `client_id = $1`, clientID)
}

func (r *repository) accountRow(ctx context.Context, where string, arg any) (Account, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, client_id, total_amount, total_paid, total_remaining, total_credit,
			created_at, updated_at
		 FROM client_accounts WHERE `+where+` FOR UPDATE`, arg)
	var a Account
	err := row.Scan(&a.ID, &a.ClientID, &a.TotalAmount, &a.TotalPaid, &a.TotalRemaining,
		&a.TotalCredit, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, httpx.ErrNotFound
	}
	return a, err
}

func (r *repository) UpdateTotals(ctx context.Context, a Account) error {
	_, err := r.db.Exec(ctx,
		`UPDATE client_accounts SET total_amount = $2, total_paid = $3, total_remaining = $4,
			total_credit = $5, updated_at = now()
		 WHERE id = $1`,
		a.ID, a.TotalAmount, a.TotalPaid, a.TotalRemaining, a.TotalCredit)
	return err
}

const billColumns = `id, client_id, bill_number, total_amount, total_paid, total_remaining,
	status, delivery_status, created_at, updated_at`

func (r *repository) OpenBills(ctx context.Context, clientID int64, excludeOutside bool) ([]billing.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE client_id = $1 AND status <> $2`
	args := []any{clientID, billing.StatusPaid}
	if excludeOutside {
		query += ` AND bill_number NOT LIKE $3`
		args = append(args, billing.OutsideBillPrefix+"%")
	}
	query += ` ORDER BY created_at, id FOR UPDATE`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []billing.Bill
	for rows.Next() {
		var b billing.Bill
		if err := rows.Scan(&b.ID, &b.ClientID, &b.BillNumber, &b.TotalAmount, &b.TotalPaid,
			&b.TotalRemaining, &b.Status, &b.DeliveryStatus, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (r *repository) FindOpenOutsideBill(ctx context.Context, clientID int64) (*billing.Bill, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills
		 WHERE client_id = $1 AND status <> $2 AND bill_number LIKE $3
		 ORDER BY created_at LIMIT 1 FOR UPDATE`,
		clientID, billing.StatusPaid, billing.OutsideBillPrefix+"%")
	var b billing.Bill
	err := row.Scan(&b.ID, &b.ClientID, &b.BillNumber, &b.TotalAmount, &b.TotalPaid,
		&b.TotalRemaining, &b.Status, &b.DeliveryStatus, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) InsertBill(ctx context.Context, bill billing.Bill) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO bills (client_id, bill_number, total_amount, total_paid, total_remaining,
			status, delivery_status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 RETURNING id`,
		bill.ClientID, bill.BillNumber, bill.TotalAmount, bill.TotalPaid, bill.TotalRemaining,
		bill.Status, bill.DeliveryStatus).Scan(&id)
	return id, err
}

func (r *repository) DeleteBill(ctx context.Context, billID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM bills WHERE id = $1`, billID)
	return err
}

func (r *repository) UpdateBillTotals(ctx context.Context, bill billing.Bill) error {
	_, err := r.db.Exec(ctx,
		`UPDATE bills SET total_paid = $2, total_remaining = $3, status = $4, updated_at = now()
		 WHERE id = $1`,
		bill.ID, bill.TotalPaid, bill.TotalRemaining, bill.Status)
	return err
}
