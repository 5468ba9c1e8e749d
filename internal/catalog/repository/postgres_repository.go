package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stocktrack/inventory-service/internal/catalog/domain"
	"github.com/stocktrack/inventory-service/internal/platform/logger"
)

var (
	ErrProductNotFound     = errors.New("product not found")
	ErrSKUConflict         = errors.New("a product with this SKU already exists")
	ErrProductHasMovements = errors.New("product has recorded stock movements and cannot be deleted")
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *domain.Product) error
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	GetProductWithStock(ctx context.Context, id int64) (*domain.ProductWithStock, error)
	ListProductsWithStock(ctx context.Context) ([]domain.ProductWithStock, error)
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	HasMovements(ctx context.Context, id int64) (bool, error)
}

type postgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) ProductRepository {
	return &postgresProductRepository{db: db}
}

func (r *postgresProductRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	query := `INSERT INTO products (sku, name, unit_price)
              VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, product.SKU, product.Name, product.UnitPrice).
		Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUConflict
		}
		logger.Error("CreateProduct: failed to insert product", err)
		return err
	}
	return nil
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT id, sku, name, unit_price, created_at, updated_at FROM products WHERE id = $1`
	var p domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		logger.Error("GetProductByID: query failed", err)
		return nil, err
	}
	return &p, nil
}

func (r *postgresProductRepository) GetProductWithStock(ctx context.Context, id int64) (*domain.ProductWithStock, error) {
	query := `
        SELECT p.id, p.sku, p.name, p.unit_price, p.created_at, p.updated_at,
               COALESCE(SUM(
                   CASE
                       WHEN m.kind = 'INBOUND' THEN m.quantity
                       WHEN m.kind = 'OUTBOUND' THEN -m.quantity
                       ELSE 0
                   END
               ), 0) AS current_stock
        FROM products p
        LEFT JOIN stock_movements m ON m.product_id = p.id
        WHERE p.id = $1
        GROUP BY p.id`

	var p domain.ProductWithStock
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.CreatedAt, &p.UpdatedAt, &p.CurrentStock,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		logger.Error("GetProductWithStock: query failed", err)
		return nil, err
	}
	return &p, nil
}

// ListProductsWithStock computes stock for all products in one pass instead
// of one aggregation query per product. It must always agree with the
// per-product aggregate.
func (r *postgresProductRepository) ListProductsWithStock(ctx context.Context) ([]domain.ProductWithStock, error) {
	query := `
        SELECT p.id, p.sku, p.name, p.unit_price, p.created_at, p.updated_at,
               COALESCE(SUM(
                   CASE
                       WHEN m.kind = 'INBOUND' THEN m.quantity
                       WHEN m.kind = 'OUTBOUND' THEN -m.quantity
                       ELSE 0
                   END
               ), 0) AS current_stock
        FROM products p
        LEFT JOIN stock_movements m ON m.product_id = p.id
        GROUP BY p.id
        ORDER BY p.id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("ListProductsWithStock: query failed", err)
		return nil, err
	}
	defer rows.Close()

	products := []domain.ProductWithStock{}
	for rows.Next() {
		var p domain.ProductWithStock
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.CreatedAt, &p.UpdatedAt, &p.CurrentStock); err != nil {
			logger.Error("ListProductsWithStock: scan failed", err)
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		logger.Error("ListProductsWithStock: rows iteration error", err)
		return nil, err
	}
	return products, nil
}

func (r *postgresProductRepository) UpdateProduct(ctx context.Context, product *domain.Product) error {
	query := `UPDATE products SET sku = $1, name = $2, unit_price = $3, updated_at = now()
              WHERE id = $4 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, product.SKU, product.Name, product.UnitPrice, product.ID).
		Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if isUniqueViolation(err) {
			return ErrSKUConflict
		}
		logger.Error("UpdateProduct: exec failed", err)
		return err
	}
	return nil
}

func (r *postgresProductRepository) HasMovements(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE product_id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		logger.Error("HasMovements: query failed", err)
		return false, err
	}
	return exists, nil
}

func (r *postgresProductRepository) DeleteProduct(ctx context.Context, id int64) error {
	query := `DELETE FROM products WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		// The RESTRICT foreign key backstops the service-level movement
		// check under concurrent appends.
		if isForeignKeyViolation(err) {
			return ErrProductHasMovements
		}
		logger.Error("DeleteProduct: exec failed", err)
		return err
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
