package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir/comptoir/internal/platform/httpx"
)

type Repository interface {
	GetAdmin(ctx context.Context, id int64) (Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (Admin, error)
	ListAdmins(ctx context.Context) ([]Admin, error)
	GetClient(ctx context.Context, id int64) (Client, error)
	GetClientByEmail(ctx context.Context, email string) (Client, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const adminColumns = `id, username, email, password_hash, phone_number, created_at`

func (r *repository) GetAdmin(ctx context.Context, id int64) (Admin, error) {
	return r.scanAdmin(r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

func (r *repository) GetAdminByEmail(ctx context.Context, email string) (Admin, error) {
	return r.scanAdmin(r.db.QueryRow(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email))
}

func (r *repository) ListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := r.db.Query(ctx, `SELECT `+adminColumns+` FROM admins ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.PhoneNumber, &a.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

func (r *repository) scanAdmin(row pgx.Row) (Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.PhoneNumber, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Admin{}, httpx.ErrNotFound
	}
	return a, err
}

const clientColumns = `id, username, email, password_hash, phone_number, address, city, created_at`

func (r *repository) GetClient(ctx context.Context, id int64) (Client, error) {
	return r.scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
}

func (r *repository) GetClientByEmail(ctx context.Context, email string) (Client, error) {
	return r.scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE email = $1`, email))
}

func (r *repository) scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Username, &c.Email, &c.PasswordHash, &c.PhoneNumber, &c.Address, &c.City, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, httpx.ErrNotFound
	}
	return c, err
}
