package service

import (
	"context"
	"fmt"

	"github.com/stocktrack/inventory-service/internal/ledger/domain"
	"github.com/stocktrack/inventory-service/internal/ledger/repository"
	"github.com/stocktrack/inventory-service/internal/platform/logger"
)

// InsufficientStockError rejects an outbound movement that would drive stock
// negative. It carries enough detail for the caller to render a precise
// message.
type InsufficientStockError struct {
	ProductName string
	Current     int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: only %d units available for %s, requested %d",
		e.Current, e.ProductName, e.Requested)
}

type LedgerService interface {
	AppendMovement(ctx context.Context, req domain.AppendMovementRequest) (*domain.Movement, error)
	CurrentStock(ctx context.Context, productID int64) (*domain.StockInfo, error)
	Valuation(ctx context.Context, productID int64) (*domain.ValuationInfo, error)
	ListMovements(ctx context.Context) ([]domain.Movement, error)
}

type ledgerServiceImpl struct {
	repo repository.MovementRepository
}

func NewLedgerService(repo repository.MovementRepository) LedgerService {
	return &ledgerServiceImpl{repo: repo}
}

// AppendMovement runs the read-check-append sequence as one unit of work.
// Preconditions (enforced by the HTTP layer, not re-checked here): kind is
// INBOUND or OUTBOUND, quantity is a positive integer, note is at most 500
// characters.
//
// The product row is locked first, so two concurrent appends for the same
// product cannot interleave between the stock read and the insert. Conflicts
// and connectivity failures surface as typed errors; nothing is retried here.
func (s *ledgerServiceImpl) AppendMovement(ctx context.Context, req domain.AppendMovementRequest) (*domain.Movement, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	product, err := s.repo.GetProductForUpdate(ctx, tx, req.ProductID)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.SumMovements(ctx, tx, req.ProductID)
	if err != nil {
		return nil, err
	}

	if req.Kind == domain.KindOutbound && req.Quantity > current {
		return nil, &InsufficientStockError{
			ProductName: product.Name,
			Current:     current,
			Requested:   req.Quantity,
		}
	}

	movement := &domain.Movement{
		ProductID: req.ProductID,
		Kind:      req.Kind,
		Quantity:  req.Quantity,
		Note:      req.Note,
	}
	if err := s.repo.InsertMovement(ctx, tx, movement); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		logger.Error("Svc.AppendMovement: commit failed for product_id %d", err, req.ProductID)
		return nil, repository.MapStorageError(err)
	}

	// Post-append stock from the same atomic unit, never a later re-read.
	if req.Kind == domain.KindInbound {
		movement.CurrentStock = current + req.Quantity
	} else {
		movement.CurrentStock = current - req.Quantity
	}
	movement.ProductName = product.Name
	movement.SKU = product.SKU
	return movement, nil
}

func (s *ledgerServiceImpl) CurrentStock(ctx context.Context, productID int64) (*domain.StockInfo, error) {
	stock, err := s.repo.CurrentStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &domain.StockInfo{ProductID: productID, CurrentStock: stock}, nil
}

func (s *ledgerServiceImpl) Valuation(ctx context.Context, productID int64) (*domain.ValuationInfo, error) {
	product, err := s.repo.GetProductRef(ctx, productID)
	if err != nil {
		return nil, err
	}
	stock, err := s.repo.CurrentStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &domain.ValuationInfo{
		ProductID:    productID,
		CurrentStock: stock,
		UnitPrice:    product.UnitPrice,
		Valuation:    float64(stock) * product.UnitPrice,
	}, nil
}

func (s *ledgerServiceImpl) ListMovements(ctx context.Context) ([]domain.Movement, error) {
	return s.repo.ListMovements(ctx)
}
