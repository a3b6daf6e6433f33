package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comptoir/comptoir/internal/platform/db"
	"github.com/comptoir/comptoir/internal/platform/httpx"
	"github.com/comptoir/comptoir/internal/stock"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filters ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetForUpdate(ctx context.Context, id int64) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id int64) error
	Alerts() stock.Store
}

type repository struct {
	db   stock.Querier
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Alerts() stock.Store {
	return stock.NewStore(r.db)
}

const productColumns = `id, category_id, admin_id, name, description, price, quantity_in_stock,
	minimum_stock_level, image_urls, barcode, variants, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.CategoryID != nil {
		argCount++
		where += ` AND category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR barcode ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY name`
	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		offset := (filters.Page - 1) * filters.Limit
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

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	return r.one(ctx, `SELECT `+productColumns+` FROM products WHERE barcode = $1`, barcode)
}

func (r *repository) one(ctx context.Context, query string, args ...any) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, httpx.ErrNotFound
	}
	return p, err
}

func (r *repository) BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM products WHERE barcode = $1 AND id <> $2)`,
		barcode, excludeID).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx,
		`INSERT INTO products (category_id, admin_id, name, description, price, quantity_in_stock,
			minimum_stock_level, image_urls, barcode, variants, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		product.CategoryID, product.AdminID, product.Name, product.Description, product.Price,
		product.QuantityInStock, product.MinimumStockLevel, product.ImageURLs, product.Barcode,
		product.Variants, product.IsActive, now).Scan(&product.ID)
	if err != nil {
		return Product{}, err
	}
	product.CreatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, product Product) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET category_id = $2, name = $3, description = $4, price = $5,
			quantity_in_stock = $6, minimum_stock_level = $7, image_urls = $8, barcode = $9,
			variants = $10, is_active = $11, updated_at = now()
		 WHERE id = $1`,
		product.ID, product.CategoryID, product.Name, product.Description, product.Price,
		product.QuantityInStock, product.MinimumStockLevel, product.ImageURLs, product.Barcode,
		product.Variants, product.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.AdminID, &p.Name, &p.Description, &p.Price,
		&p.QuantityInStock, &p.MinimumStockLevel, &p.ImageURLs, &p.Barcode, &p.Variants,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
