package billing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir/comptoir/internal/catalog"
	"github.com/comptoir/comptoir/internal/platform/db"
	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/stock"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Bill, error)
	GetWithClient(ctx context.Context, id int64) (*BillWithClient, error)
	List(ctx context.Context, req ListBillsRequest) ([]BillWithClient, int, error)
	ListByClient(ctx context.Context, clientID int64, page, limit int) ([]Bill, error)
	CountByClient(ctx context.Context, clientID int64, status *Status) (int, error)
	Summary(ctx context.Context) (Summary, error)
	Statistics(ctx context.Context, req StatisticsRequest) ([]PeriodSummary, error)
	Delete(ctx context.Context, id int64) error
}

// TxRepository is the transactional surface the bill engine mutates. Product
// rows are fetched FOR UPDATE so concurrent bills against the same stock
// serialize at the row lock.
type TxRepository interface {
	InsertBill(ctx context.Context, bill Bill) (int64, error)
	InsertItem(ctx context.Context, item BillItem) (int64, error)
	UpdateTotals(ctx context.Context, bill Bill) error
	UpdateDeliveryStatus(ctx context.Context, id int64, status DeliveryStatus) error
	GetForUpdate(ctx context.Context, id int64) (Bill, error)
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
	GetProductForUpdate(ctx context.Context, productID int64) (catalog.Product, error)
	SetProductStock(ctx context.Context, productID int64, quantity int) error
	Alerts() stock.Store
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

func (r *repository) Alerts() stock.Store {
	return stock.NewStore(r.db)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const billColumns = `id, client_id, bill_number, total_amount, total_paid, total_remaining,
	status, delivery_status, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Bill, error) {
	row := r.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	bill, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	bill.Items = items
	return &bill, nil
}

func (r *repository) GetWithClient(ctx context.Context, id int64) (*BillWithClient, error) {
	row := r.db.QueryRow(ctx,
		`SELECT b.id, b.client_id, b.bill_number, b.total_amount, b.total_paid, b.total_remaining,
			b.status, b.delivery_status, b.created_at, b.updated_at,
			c.username, c.email, c.phone_number
		 FROM bills b JOIN clients c ON c.id = b.client_id
		 WHERE b.id = $1`, id)

	var bc BillWithClient
	err := row.Scan(&bc.ID, &bc.ClientID, &bc.BillNumber, &bc.TotalAmount, &bc.TotalPaid,
		&bc.TotalRemaining, &bc.Status, &bc.DeliveryStatus, &bc.CreatedAt, &bc.UpdatedAt,
		&bc.ClientName, &bc.ClientEmail, &bc.ClientPhone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	bc.Items = items
	return &bc, nil
}

func (r *repository) List(ctx context.Context, req ListBillsRequest) ([]BillWithClient, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if req.ClientID != nil {
		argCount++
		where += ` AND b.client_id = $` + strconv.Itoa(argCount)
		args = append(args, *req.ClientID)
	}
	if req.Status != nil {
		argCount++
		where += ` AND b.status = $` + strconv.Itoa(argCount)
		args = append(args, *req.Status)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bills b`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT b.id, b.client_id, b.bill_number, b.total_amount, b.total_paid, b.total_remaining,
			b.status, b.delivery_status, b.created_at, b.updated_at,
			c.username, c.email, c.phone_number
		 FROM bills b JOIN clients c ON c.id = b.client_id` + where + ` ORDER BY b.created_at DESC`
	if req.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, req.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (req.Page - 1) * req.Limit
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bills []BillWithClient
	for rows.Next() {
		var bc BillWithClient
		if err := rows.Scan(&bc.ID, &bc.ClientID, &bc.BillNumber, &bc.TotalAmount, &bc.TotalPaid,
			&bc.TotalRemaining, &bc.Status, &bc.DeliveryStatus, &bc.CreatedAt, &bc.UpdatedAt,
			&bc.ClientName, &bc.ClientEmail, &bc.ClientPhone); err != nil {
			return nil, 0, err
		}
		bills = append(bills, bc)
	}
	return bills, total, rows.Err()
}

func (r *repository) ListByClient(ctx context.Context, clientID int64, page, limit int) ([]Bill, error) {
	offset := (page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+billColumns+` FROM bills WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range bills {
		items, err := r.items(ctx, bills[i].ID)
		if err != nil {
			return nil, err
		}
		bills[i].Items = items
	}
	return bills, nil
}

func (r *repository) CountByClient(ctx context.Context, clientID int64, status *Status) (int, error) {
	query := `SELECT COUNT(*) FROM bills WHERE client_id = $1`
	args := []any{clientID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *repository) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_paid), 0),
			COALESCE(SUM(total_remaining), 0),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status = 'not paid')
		 FROM bills`).Scan(&s.TotalBills, &s.TotalRevenue, &s.TotalPaid, &s.TotalPending,
		&s.PaidBills, &s.UnpaidBills)
	return s, err
}

var periodFormats = map[string]string{
	"day":   "YYYY-MM-DD",
	"month": "YYYY-MM",
	"year":  "YYYY",
}

func (r *repository) Statistics(ctx context.Context, req StatisticsRequest) ([]PeriodSummary, error) {
	format, ok := periodFormats[req.GroupBy]
	if !ok {
		return nil, errors.New("billing: unknown statistics grouping")
	}

	query := `SELECT to_char(created_at, '` + format + `') AS period,
			COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_paid), 0),
			COALESCE(SUM(total_remaining), 0),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status = 'not paid')
		 FROM bills WHERE 1=1`
	args := []any{}
	argCount := 0

	if req.Year != nil {
		argCount++
		query += ` AND EXTRACT(YEAR FROM created_at) = $` + strconv.Itoa(argCount)
		args = append(args, *req.Year)
	}
	if req.Month != nil {
		argCount++
		query += ` AND EXTRACT(MONTH FROM created_at) = $` + strconv.Itoa(argCount)
		args = append(args, *req.Month)
	}
	if req.From != nil {
		argCount++
		query += ` AND created_at::date >= $` + strconv.Itoa(argCount)
		args = append(args, *req.From)
	}
	if req.To != nil {
		argCount++
		query += ` AND created_at::date <= $` + strconv.Itoa(argCount)
		args = append(args, *req.To)
	}
	query += ` GROUP BY period ORDER BY period`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []PeriodSummary
	for rows.Next() {
		var p PeriodSummary
		if err := rows.Scan(&p.Period, &p.TotalBills, &p.TotalRevenue, &p.TotalPaid,
			&p.TotalPending, &p.PaidBills, &p.UnpaidBills); err != nil {
			return nil, err
		}
		buckets = append(buckets, p)
	}
	return buckets, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) InsertBill(ctx context.Context, bill Bill) (int64, error) {
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

func (r *repository) InsertItem(ctx context.Context, item BillItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO bill_items (bill_id, product_id, product_name, unit_price, quantity,
			subtotal, selected_variants, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 RETURNING id`,
		item.BillID, item.ProductID, item.ProductName, item.UnitPrice, item.Quantity,
		item.Subtotal, item.SelectedVariants).Scan(&id)
	return id, err
}

func (r *repository) UpdateTotals(ctx context.Context, bill Bill) error {
	_, err := r.db.Exec(ctx,
		`UPDATE bills SET total_amount = $2, total_paid = $3, total_remaining = $4,
			status = $5, updated_at = now()
		 WHERE id = $1`,
		bill.ID, bill.TotalAmount, bill.TotalPaid, bill.TotalRemaining, bill.Status)
	return err
}

func (r *repository) UpdateDeliveryStatus(ctx context.Context, id int64, status DeliveryStatus) error {
	_, err := r.db.Exec(ctx,
		`UPDATE bills SET delivery_status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	return err
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Bill, error) {
	row := r.db.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1 FOR UPDATE`, id)
	bill, err := scanBill(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bill{}, httpx.ErrNotFound
	}
	return bill, err
}

func (r *repository) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM bills WHERE created_at::date = $1::date`, day).Scan(&count)
	return count, err
}

func (r *repository) GetProductForUpdate(ctx context.Context, productID int64) (catalog.Product, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, category_id, admin_id, name, description, price, quantity_in_stock,
			minimum_stock_level, image_urls, barcode, variants, is_active, created_at, updated_at
		 FROM products WHERE id = $1 FOR UPDATE`, productID)
	var p catalog.Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.AdminID, &p.Name, &p.Description, &p.Price,
		&p.QuantityInStock, &p.MinimumStockLevel, &p.ImageURLs, &p.Barcode, &p.Variants,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, httpx.ErrNotFound
	}
	return p, err
}

func (r *repository) SetProductStock(ctx context.Context, productID int64, quantity int) error {
	_, err := r.db.Exec(ctx,
		`UPDATE products SET quantity_in_stock = $2, updated_at = now() WHERE id = $1`,
		productID, quantity)
	return err
}

func (r *repository) items(ctx context.Context, billID int64) ([]BillItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, bill_id, product_id, product_name, unit_price, quantity, subtotal,
			selected_variants, created_at
		 FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []BillItem
	for rows.Next() {
		var item BillItem
		if err := rows.Scan(&item.ID, &item.BillID, &item.ProductID, &item.ProductName,
			&item.UnitPrice, &item.Quantity, &item.Subtotal, &item.SelectedVariants,
			&item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.ClientID, &b.BillNumber, &b.TotalAmount, &b.TotalPaid,
		&b.TotalRemaining, &b.Status, &b.DeliveryStatus, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
