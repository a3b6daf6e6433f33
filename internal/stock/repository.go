package stock

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting the alert
// store run inside whichever transaction mutated the stock.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SQLStore persists alerts in the stock_alerts table.
type SQLStore struct {
	db Querier
}

// NewStore builds a SQLStore over a pool or transaction.
func NewStore(db Querier) *SQLStore {
	return &SQLStore{db: db}
}

const alertColumns = `id, product_id, alert_type, message, is_resolved, created_at, resolved_at`

func (s *SQLStore) UnresolvedAlert(ctx context.Context, productID int64) (*Alert, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+alertColumns+` FROM stock_alerts WHERE product_id = $1 AND is_resolved = false`,
		productID)
	var a Alert
	err := row.Scan(&a.ID, &a.ProductID, &a.AlertType, &a.Message, &a.IsResolved, &a.CreatedAt, &a.ResolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLStore) ResolveAlert(ctx context.Context, alertID int64, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE stock_alerts SET is_resolved = true, resolved_at = $2 WHERE id = $1`,
		alertID, at)
	return err
}

func (s *SQLStore) InsertAlert(ctx context.Context, alert Alert) (Alert, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO stock_alerts (product_id, alert_type, message, is_resolved, created_at)
		 VALUES ($1, $2, $3, false, now())
		 RETURNING id, created_at`,
		alert.ProductID, alert.AlertType, alert.Message).Scan(&alert.ID, &alert.CreatedAt)
	return alert, err
}

// Get fetches a single alert by id.
func (s *SQLStore) Get(ctx context.Context, id int64) (Alert, error) {
	row := s.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE id = $1`, id)
	var a Alert
	err := row.Scan(&a.ID, &a.ProductID, &a.AlertType, &a.Message, &a.IsResolved, &a.CreatedAt, &a.ResolvedAt)
	return a, err
}

// ListFilter narrows alert listings.
type ListFilter struct {
	Resolved  *bool
	AlertType *AlertType
	Limit     int
	Offset    int
}

// List returns alerts newest first.
func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM stock_alerts WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Resolved != nil {
		argCount++
		query += ` AND is_resolved = $` + strconv.Itoa(argCount)
		args = append(args, *filter.Resolved)
	}
	if filter.AlertType != nil {
		argCount++
		query += ` AND alert_type = $` + strconv.Itoa(argCount)
		args = append(args, *filter.AlertType)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filter.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filter.Offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.ProductID, &a.AlertType, &a.Message, &a.IsResolved, &a.CreatedAt, &a.ResolvedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
