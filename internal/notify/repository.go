package notify

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir/comptoir/internal/platform/httpx"
)

type Repository interface {
	Insert(ctx context.Context, n Notification) (int64, error)
	Get(ctx context.Context, id int64) (*Notification, error)
	List(ctx context.Context, filter ListFilter) ([]Notification, int, error)
	ListUnsent(ctx context.Context, limit int) ([]Notification, error)
	MarkSent(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const notificationColumns = `id, admin_id, client_id, bill_id, stock_alert_id, type, channel,
	recipient, subject, message, is_sent, sent_at, created_at`

func (r *repository) Insert(ctx context.Context, n Notification) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO notifications (admin_id, client_id, bill_id, stock_alert_id, type, channel,
			recipient, subject, message, is_sent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, now())
		 RETURNING id`,
		n.AdminID, n.ClientID, n.BillID, n.StockAlertID, n.Type, n.Channel,
		n.Recipient, n.Subject, n.Message).Scan(&id)
	return id, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Notification, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httpx.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Notification, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filter.Type != nil {
		argCount++
		where += ` AND type = $` + strconv.Itoa(argCount)
		args = append(args, *filter.Type)
	}
	if filter.IsSent != nil {
		argCount++
		where += ` AND is_sent = $` + strconv.Itoa(argCount)
		args = append(args, *filter.IsSent)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filter.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, n)
	}
	return list, total, rows.Err()
}

func (r *repository) ListUnsent(ctx context.Context, limit int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE is_sent = false ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *repository) MarkSent(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_sent = true, sent_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.AdminID, &n.ClientID, &n.BillID, &n.StockAlertID, &n.Type,
		&n.Channel, &n.Recipient, &n.Subject, &n.Message, &n.IsSent, &n.SentAt, &n.CreatedAt)
	return n, err
}
