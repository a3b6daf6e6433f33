package payments

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
	Get(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, page, limit int) ([]Payment, int, error)
	ListByBill(ctx context.Context, billID int64) ([]Payment, error)
	GetBill(ctx context.Context, billID int64) (*billing.Bill, error)
}

// TxRepository couples payment writes with the owning bill's totals so both
// change in one transaction.
type TxRepository interface {
	Insert(ctx context.Context, p Payment) (int64, error)
	Update(ctx context.Context, p Payment) error
	Delete(ctx context.Context, id int64) error
	GetForUpdate(ctx context.Context, id int64) (Payment, error)
	GetBillForUpdate(ctx context.Context, billID int64) (billing.Bill, error)
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

const paymentColumns = `id, bill_id, admin_id, amount, method, note, payment_date, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, page, limit int) ([]Payment, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments ORDER BY payment_date DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

func (r *repository) ListByBill(ctx context.Context, billID int64) ([]Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE bill_id = $1 ORDER BY created_at, id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *repository) GetBill(ctx context.Context, billID int64) (*billing.Bill, error) {
	bill, err := r.billRow(ctx, billID, false)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) Insert(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO payments (bill_id, admin_id, amount, method, note, payment_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 RETURNING id`,
		p.BillID, p.AdminID, p.Amount, p.Method, p.Note, p.PaymentDate).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, p Payment) error {
	_, err := r.db.Exec(ctx,
		`UPDATE payments SET amount = $2, method = $3, note = $4, payment_date = $5, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Amount, p.Method, p.Note, p.PaymentDate)
	return err
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Payment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, httpx.ErrNotFound
	}
	return p, err
}

func (r *repository) GetBillForUpdate(ctx context.Context, billID int64) (billing.Bill, error) {
	return r.billRow(ctx, billID, true)
}

func (r *repository) UpdateBillTotals(ctx context.Context, bill billing.Bill) error {
	_, err := r.db.Exec(ctx,
		`UPDATE bills SET total_paid = $2, total_remaining = $3, status = $4, updated_at = now()
		 WHERE id = $1`,
		bill.ID, bill.TotalPaid, bill.TotalRemaining, bill.Status)
	return err
}

func (r *repository) billRow(ctx context.Context, billID int64, forUpdate bool) (billing.Bill, error) {
	query := `SELECT id, client_id, bill_number, total_amount, total_paid, total_remaining,
		status, delivery_status, created_at, updated_at FROM bills WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var b billing.Bill
	err := r.db.QueryRow(ctx, query, billID).Scan(&b.ID, &b.ClientID, &b.BillNumber,
		&b.TotalAmount, &b.TotalPaid, &b.TotalRemaining, &b.Status, &b.DeliveryStatus,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return billing.Bill{}, httpx.ErrNotFound
	}
	return b, err
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.BillID, &p.AdminID, &p.Amount, &p.Method, &p.Note,
		&p.PaymentDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
