package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stocktrack/inventory-service/internal/ledger/domain"
	"github.com/stocktrack/inventory-service/internal/platform/logger"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrTxConflict         = errors.New("ledger transaction conflict")
	ErrStorageUnavailable = errors.New("ledger storage unavailable")
)

// DBTX is either a *sql.DB or a *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
	Commit() error
	Rollback() error
}

// stockExpr derives current stock for one product by folding all of its
// movements; it is the single source of truth for the aggregate.
const stockExpr = `
        SELECT COALESCE(SUM(
            CASE
                WHEN kind = 'INBOUND' THEN quantity
                WHEN kind = 'OUTBOUND' THEN -quantity
            END
        ), 0)
        FROM stock_movements
        WHERE product_id = $1`

type MovementRepository interface {
	// Append path. The read-check-append sequence must run on one DBTX so
	// that concurrent appends for the same product serialize on the locked
	// product row.
	BeginTx(ctx context.Context) (DBTX, error)
	GetProductForUpdate(ctx context.Context, dbops DBTX, productID int64) (*domain.ProductRef, error)
	SumMovements(ctx context.Context, dbops DBTX, productID int64) (int, error)
	InsertMovement(ctx context.Context, dbops DBTX, movement *domain.Movement) error

	// Read paths.
	GetProductRef(ctx context.Context, productID int64) (*domain.ProductRef, error)
	CurrentStock(ctx context.Context, productID int64) (int, error)
	ListMovements(ctx context.Context) ([]domain.Movement, error)
}

type postgresMovementRepository struct {
	db *sql.DB
}

func NewPostgresMovementRepository(db *sql.DB) MovementRepository {
	return &postgresMovementRepository{db: db}
}

func (r *postgresMovementRepository) BeginTx(ctx context.Context) (DBTX, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("BeginTx: failed to open transaction", err)
		return nil, MapStorageError(err)
	}
	return tx, nil
}

// GetProductForUpdate locks the product row for the remainder of the
// transaction. Concurrent appends for the same product queue up here, which
// makes the subsequent read-check-append sequence per-product serial.
func (r *postgresMovementRepository) GetProductForUpdate(ctx context.Context, dbops DBTX, productID int64) (*domain.ProductRef, error) {
	query := `SELECT id, sku, name, unit_price FROM products WHERE id = $1 FOR UPDATE`
	var ref domain.ProductRef
	err := dbops.QueryRowContext(ctx, query, productID).Scan(&ref.ID, &ref.SKU, &ref.Name, &ref.UnitPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		logger.Error("GetProductForUpdate: query failed", err)
		return nil, MapStorageError(err)
	}
	return &ref, nil
}

func (r *postgresMovementRepository) SumMovements(ctx context.Context, dbops DBTX, productID int64) (int, error) {
	var stock int
	if err := dbops.QueryRowContext(ctx, stockExpr, productID).Scan(&stock); err != nil {
		logger.Error("SumMovements: query failed for product_id %d", err, productID)
		return 0, MapStorageError(err)
	}
	return stock, nil
}

func (r *postgresMovementRepository) InsertMovement(ctx context.Context, dbops DBTX, movement *domain.Movement) error {
	query := `INSERT INTO stock_movements (product_id, kind, quantity, note)
              VALUES ($1, $2, $3, $4) RETURNING id, created_at`

	var note sql.NullString
	if movement.Note != nil {
		note = sql.NullString{String: *movement.Note, Valid: true}
	}

	err := dbops.QueryRowContext(ctx, query, movement.ProductID, movement.Kind, movement.Quantity, note).
		Scan(&movement.ID, &movement.CreatedAt)
	if err != nil {
		logger.Error("InsertMovement: failed to insert movement", err)
		return MapStorageError(err)
	}
	return nil
}

func (r *postgresMovementRepository) GetProductRef(ctx context.Context, productID int64) (*domain.ProductRef, error) {
	query := `SELECT id, sku, name, unit_price FROM products WHERE id = $1`
	var ref domain.ProductRef
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&ref.ID, &ref.SKU, &ref.Name, &ref.UnitPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		logger.Error("GetProductRef: query failed", err)
		return nil, MapStorageError(err)
	}
	return &ref, nil
}

// CurrentStock recomputes the aggregate on every call. An unknown product is
// reported as not found, distinct from a known product with no movements.
func (r *postgresMovementRepository) CurrentStock(ctx context.Context, productID int64) (int, error) {
	query := `
        SELECT COALESCE(SUM(
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

	var stock int
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		logger.Error("CurrentStock: query failed for product_id %d", err, productID)
		return 0, MapStorageError(err)
	}
	return stock, nil
}

// ListMovements returns every movement newest first. Stock is recomputed per
// row at read time, so all rows of one product carry that product's stock as
// of this listing, not a historical snapshot.
func (r *postgresMovementRepository) ListMovements(ctx context.Context) ([]domain.Movement, error) {
	query := `
        SELECT m.id, m.product_id, m.kind, m.quantity, m.note, m.created_at,
               p.name, p.sku,
               (SELECT COALESCE(SUM(
                   CASE
                       WHEN kind = 'INBOUND' THEN quantity
                       WHEN kind = 'OUTBOUND' THEN -quantity
                   END
               ), 0) FROM stock_movements WHERE product_id = m.product_id) AS current_stock
        FROM stock_movements m
        JOIN products p ON p.id = m.product_id
        ORDER BY m.created_at DESC, m.id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("ListMovements: query failed", err)
		return nil, MapStorageError(err)
	}
	defer rows.Close()

	movements := []domain.Movement{}
	for rows.Next() {
		var m domain.Movement
		var note sql.NullString
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &note, &m.CreatedAt,
			&m.ProductName, &m.SKU, &m.CurrentStock); err != nil {
			logger.Error("ListMovements: scan failed", err)
			return nil, MapStorageError(err)
		}
		if note.Valid {
			m.Note = &note.String
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		logger.Error("ListMovements: rows iteration error", err)
		return nil, MapStorageError(err)
	}
	return movements, nil
}

// MapStorageError translates driver-level failures into the ledger's error
// taxonomy: serialization conflicts and deadlocks become ErrTxConflict,
// connectivity problems become ErrStorageUnavailable. Everything else passes
// through unchanged.
func MapStorageError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return ErrTxConflict
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ErrStorageUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrStorageUnavailable
	}
	return err
}
