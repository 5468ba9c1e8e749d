package mocks

import (
	"context"

	"github.com/stocktrack/inventory-service/internal/ledger/domain"
	"github.com/stocktrack/inventory-service/internal/ledger/repository"
	"github.com/stretchr/testify/mock"
)

type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) BeginTx(ctx context.Context) (repository.DBTX, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repository.DBTX), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMovementRepository) GetProductForUpdate(ctx context.Context, dbops repository.DBTX, productID int64) (*domain.ProductRef, error) {
	args := m.Called(ctx, dbops, productID)
	if ref := args.Get(0); ref != nil {
		return ref.(*domain.ProductRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMovementRepository) SumMovements(ctx context.Context, dbops repository.DBTX, productID int64) (int, error) {
	args := m.Called(ctx, dbops, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockMovementRepository) InsertMovement(ctx context.Context, dbops repository.DBTX, movement *domain.Movement) error {
	args := m.Called(ctx, dbops, movement)
	if movement != nil && args.Error(0) == nil {
		movement.ID = 1
	}
	return args.Error(0)
}

func (m *MockMovementRepository) GetProductRef(ctx context.Context, productID int64) (*domain.ProductRef, error) {
	args := m.Called(ctx, productID)
	if ref := args.Get(0); ref != nil {
		return ref.(*domain.ProductRef), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMovementRepository) CurrentStock(ctx context.Context, productID int64) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func (m *MockMovementRepository) ListMovements(ctx context.Context) ([]domain.Movement, error) {
	args := m.Called(ctx)
	if movements := args.Get(0); movements != nil {
		return movements.([]domain.Movement), args.Error(1)
	}
	return nil, args.Error(1)
}
