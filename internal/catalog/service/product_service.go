package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/stocktrack/inventory-service/internal/catalog/domain"
	"github.com/stocktrack/inventory-service/internal/catalog/repository"
	"github.com/stocktrack/inventory-service/internal/platform/logger"
)

var ErrInvalidSKU = errors.New("SKU can only contain letters, numbers, hyphens and underscores")

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9-_]+$`)

type ProductService interface {
	CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.ProductWithStock, error)
	GetProduct(ctx context.Context, id int64) (*domain.ProductWithStock, error)
	ListProducts(ctx context.Context) ([]domain.ProductWithStock, error)
	UpdateProduct(ctx context.Context, id int64, req domain.UpdateProductRequest) (*domain.ProductWithStock, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type productServiceImpl struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productServiceImpl{repo: repo}
}

func (s *productServiceImpl) CreateProduct(ctx context.Context, req domain.CreateProductRequest) (*domain.ProductWithStock, error) {
	if !skuPattern.MatchString(req.SKU) {
		return nil, ErrInvalidSKU
	}

	product := &domain.Product{
		SKU:       req.SKU,
		Name:      strings.TrimSpace(req.Name),
		UnitPrice: req.UnitPrice,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if !errors.Is(err, repository.ErrSKUConflict) {
			logger.Error("Svc.CreateProduct: repo error", err)
		}
		return nil, err
	}
	return s.repo.GetProductWithStock(ctx, product.ID)
}

func (s *productServiceImpl) GetProduct(ctx context.Context, id int64) (*domain.ProductWithStock, error) {
	return s.repo.GetProductWithStock(ctx, id)
}

func (s *productServiceImpl) ListProducts(ctx context.Context) ([]domain.ProductWithStock, error) {
	return s.repo.ListProductsWithStock(ctx)
}

func (s *productServiceImpl) UpdateProduct(ctx context.Context, id int64, req domain.UpdateProductRequest) (*domain.ProductWithStock, error) {
	if !skuPattern.MatchString(req.SKU) {
		return nil, ErrInvalidSKU
	}

	product := &domain.Product{
		ID:        id,
		SKU:       req.SKU,
		Name:      strings.TrimSpace(req.Name),
		UnitPrice: req.UnitPrice,
	}
	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if !errors.Is(err, repository.ErrSKUConflict) && !errors.Is(err, repository.ErrProductNotFound) {
			logger.Error("Svc.UpdateProduct: repo error", err)
		}
		return nil, err
	}
	return s.repo.GetProductWithStock(ctx, id)
}

// DeleteProduct removes a product only while its ledger is empty. The
// database foreign key enforces the same rule against appends racing this
// check.
func (s *productServiceImpl) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.repo.GetProductByID(ctx, id); err != nil {
		return err
	}

	hasMovements, err := s.repo.HasMovements(ctx, id)
	if err != nil {
		logger.Error("Svc.DeleteProduct: movement check failed", err)
		return err
	}
	if hasMovements {
		return repository.ErrProductHasMovements
	}

	return s.repo.DeleteProduct(ctx, id)
}
