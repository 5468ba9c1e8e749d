package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stocktrack/inventory-service/internal/ledger/domain"
	"github.com/stocktrack/inventory-service/internal/ledger/repository"
	"github.com/stocktrack/inventory-service/internal/ledger/repository/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func strPtr(s string) *string { return &s }

func TestLedgerService_AppendMovement(t *testing.T) {
	ctx := context.TODO()
	widget := &domain.ProductRef{ID: 1, SKU: "W1", Name: "WIDGET-1", UnitPrice: 9.99}

	t.Run("Inbound append returns post-append stock", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		mockTx := new(mocks.MockDBTX)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(mockTx, nil).Once()
		mockRepo.On("GetProductForUpdate", ctx, mockTx, int64(1)).Return(widget, nil).Once()
		mockRepo.On("SumMovements", ctx, mockTx, int64(1)).Return(0, nil).Once()
		mockRepo.On("InsertMovement", ctx, mockTx, mock.MatchedBy(func(m *domain.Movement) bool {
			return m.ProductID == 1 && m.Kind == domain.KindInbound && m.Quantity == 50
		})).Return(nil).Once()
		mockTx.On("Commit").Return(nil).Once()
		mockTx.On("Rollback").Return(nil).Maybe()

		movement, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 1, Kind: domain.KindInbound, Quantity: 50,
		})
		assert.NoError(t, err)
		assert.Equal(t, 50, movement.CurrentStock)
		assert.Equal(t, "WIDGET-1", movement.ProductName)
		assert.Equal(t, "W1", movement.SKU)
		mockRepo.AssertExpectations(t)
		mockTx.AssertExpectations(t)
	})

	t.Run("Outbound append decrements stock and keeps note", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		mockTx := new(mocks.MockDBTX)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(mockTx, nil).Once()
		mockRepo.On("GetProductForUpdate", ctx, mockTx, int64(1)).Return(widget, nil).Once()
		mockRepo.On("SumMovements", ctx, mockTx, int64(1)).Return(50, nil).Once()
		mockRepo.On("InsertMovement", ctx, mockTx, mock.MatchedBy(func(m *domain.Movement) bool {
			return m.Kind == domain.KindOutbound && m.Quantity == 20 && m.Note != nil && *m.Note == "order #7"
		})).Return(nil).Once()
		mockTx.On("Commit").Return(nil).Once()
		mockTx.On("Rollback").Return(nil).Maybe()

		movement, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 1, Kind: domain.KindOutbound, Quantity: 20, Note: strPtr("order #7"),
		})
		assert.NoError(t, err)
		assert.Equal(t, 30, movement.CurrentStock)
		mockRepo.AssertExpectations(t)
		mockTx.AssertExpectations(t)
	})

	t.Run("Outbound exceeding stock is rejected without an insert", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		mockTx := new(mocks.MockDBTX)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(mockTx, nil).Once()
		mockRepo.On("GetProductForUpdate", ctx, mockTx, int64(1)).Return(widget, nil).Once()
		mockRepo.On("SumMovements", ctx, mockTx, int64(1)).Return(30, nil).Once()
		mockTx.On("Rollback").Return(nil).Once()

		movement, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 1, Kind: domain.KindOutbound, Quantity: 31,
		})
		assert.Nil(t, movement)

		var insufficientErr *InsufficientStockError
		assert.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, 30, insufficientErr.Current)
		assert.Equal(t, 31, insufficientErr.Requested)
		assert.Equal(t, "WIDGET-1", insufficientErr.ProductName)

		mockRepo.AssertNotCalled(t, "InsertMovement", mock.Anything, mock.Anything, mock.Anything)
		mockTx.AssertNotCalled(t, "Commit")
		mockRepo.AssertExpectations(t)
		mockTx.AssertExpectations(t)
	})

	t.Run("Outbound equal to current stock drives it to zero", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		mockTx := new(mocks.MockDBTX)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(mockTx, nil).Once()
		mockRepo.On("GetProductForUpdate", ctx, mockTx, int64(1)).Return(widget, nil).Once()
		mockRepo.On("SumMovements", ctx, mockTx, int64(1)).Return(30, nil).Once()
		mockRepo.On("InsertMovement", ctx, mockTx, mock.Anything).Return(nil).Once()
		mockTx.On("Commit").Return(nil).Once()
		mockTx.On("Rollback").Return(nil).Maybe()

		movement, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 1, Kind: domain.KindOutbound, Quantity: 30,
		})
		assert.NoError(t, err)
		assert.Equal(t, 0, movement.CurrentStock)
		mockRepo.AssertExpectations(t)
		mockTx.AssertExpectations(t)
	})

	t.Run("Outbound of one unit from empty stock is rejected", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		mockTx := new(mocks.MockDBTX)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(mockTx, nil).Once()
		mockRepo.On("GetProductForUpdate", ctx, mockTx, int64(1)).Return(widget, nil).Once()
		mockRepo.On("SumMovements", ctx, mockTx, int64(1)).Return(0, nil).Once()
		mockTx.On("Rollback").Return(nil).Once()

		_, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 1, Kind: domain.KindOutbound, Quantity: 1,
		})

		var insufficientErr *InsufficientStockError
		assert.ErrorAs(t, err, &insufficientErr)
		assert.Equal(t, 0, insufficientErr.Current)
		assert.Equal(t, 1, insufficientErr.Requested)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Unknown product", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		mockTx := new(mocks.MockDBTX)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(mockTx, nil).Once()
		mockRepo.On("GetProductForUpdate", ctx, mockTx, int64(42)).Return(nil, repository.ErrProductNotFound).Once()
		mockTx.On("Rollback").Return(nil).Once()

		_, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 42, Kind: domain.KindInbound, Quantity: 5,
		})
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Serialization failure on commit surfaces as conflict", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		mockTx := new(mocks.MockDBTX)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(mockTx, nil).Once()
		mockRepo.On("GetProductForUpdate", ctx, mockTx, int64(1)).Return(widget, nil).Once()
		mockRepo.On("SumMovements", ctx, mockTx, int64(1)).Return(10, nil).Once()
		mockRepo.On("InsertMovement", ctx, mockTx, mock.Anything).Return(nil).Once()
		mockTx.On("Commit").Return(&pgconn.PgError{Code: "40001"}).Once()
		mockTx.On("Rollback").Return(nil).Once()

		_, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 1, Kind: domain.KindInbound, Quantity: 5,
		})
		assert.ErrorIs(t, err, repository.ErrTxConflict)
		mockRepo.AssertExpectations(t)
		mockTx.AssertExpectations(t)
	})

	t.Run("Storage unavailable on begin", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		service := NewLedgerService(mockRepo)

		mockRepo.On("BeginTx", ctx).Return(nil, repository.ErrStorageUnavailable).Once()

		_, err := service.AppendMovement(ctx, domain.AppendMovementRequest{
			ProductID: 1, Kind: domain.KindInbound, Quantity: 5,
		})
		assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
		mockRepo.AssertExpectations(t)
	})
}

func TestLedgerService_CurrentStock(t *testing.T) {
	ctx := context.TODO()

	t.Run("Known product with movements", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		service := NewLedgerService(mockRepo)

		mockRepo.On("CurrentStock", ctx, int64(1)).Return(30, nil).Twice()

		first, err := service.CurrentStock(ctx, 1)
		assert.NoError(t, err)
		second, err := service.CurrentStock(ctx, 1)
		assert.NoError(t, err)
		// Reads are idempotent when nothing was appended in between.
		assert.Equal(t, first.CurrentStock, second.CurrentStock)
		assert.Equal(t, 30, first.CurrentStock)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Known product with no movements yields zero, not an error", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		service := NewLedgerService(mockRepo)

		mockRepo.On("CurrentStock", ctx, int64(2)).Return(0, nil).Once()

		info, err := service.CurrentStock(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, 0, info.CurrentStock)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Unknown product", func(t *testing.T) {
		mockRepo := new(mocks.MockMovementRepository)
		service := NewLedgerService(mockRepo)

		mockRepo.On("CurrentStock", ctx, int64(99)).Return(0, repository.ErrProductNotFound).Once()

		_, err := service.CurrentStock(ctx, 99)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
		mockRepo.AssertExpectations(t)
	})
}

func TestLedgerService_Valuation(t *testing.T) {
	ctx := context.TODO()
	mockRepo := new(mocks.MockMovementRepository)
	service := NewLedgerService(mockRepo)

	mockRepo.On("GetProductRef", ctx, int64(1)).
		Return(&domain.ProductRef{ID: 1, SKU: "W1", Name: "WIDGET-1", UnitPrice: 9.99}, nil).Once()
	mockRepo.On("CurrentStock", ctx, int64(1)).Return(30, nil).Once()

	info, err := service.Valuation(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 30, info.CurrentStock)
	assert.InDelta(t, 299.7, info.Valuation, 0.0001)
	mockRepo.AssertExpectations(t)
}

func TestLedgerService_ListMovements(t *testing.T) {
	ctx := context.TODO()
	mockRepo := new(mocks.MockMovementRepository)
	service := NewLedgerService(mockRepo)

	listed := []domain.Movement{
		{ID: 2, ProductID: 1, Kind: domain.KindOutbound, Quantity: 20, ProductName: "WIDGET-1", SKU: "W1", CurrentStock: 30},
		{ID: 1, ProductID: 1, Kind: domain.KindInbound, Quantity: 50, ProductName: "WIDGET-1", SKU: "W1", CurrentStock: 30},
	}
	mockRepo.On("ListMovements", ctx).Return(listed, nil).Once()

	movements, err := service.ListMovements(ctx)
	assert.NoError(t, err)
	assert.Len(t, movements, 2)
	// Newest first, every row carrying the product's stock as of this read.
	assert.Equal(t, int64(2), movements[0].ID)
	assert.Equal(t, 30, movements[0].CurrentStock)
	assert.Equal(t, 30, movements[1].CurrentStock)
	mockRepo.AssertExpectations(t)
}

func TestMapStorageError(t *testing.T) {
	assert.ErrorIs(t, repository.MapStorageError(&pgconn.PgError{Code: "40P01"}), repository.ErrTxConflict)
	assert.ErrorIs(t, repository.MapStorageError(context.DeadlineExceeded), repository.ErrStorageUnavailable)

	plain := errors.New("some other failure")
	assert.Equal(t, plain, repository.MapStorageError(plain))
	assert.NoError(t, repository.MapStorageError(nil))
}
