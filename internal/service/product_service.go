package service

import (
	"context"
	"fmt"

	"jobshop/internal/model"
	"jobshop/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var maxTaxPercentage = decimal.NewFromInt(100)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List retrieves products with pagination.
func (s *productService) List(ctx context.Context, limit, offset int) ([]model.Product, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.productRepo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	s.logger.Debug().
		Int("count", len(products)).
		Int("limit", limit).
		Int("offset", offset).
		Msg("retrieved products")

	return products, nil
}

// GetByID retrieves a single product by ID. Deleted products are reported as not found.
func (s *productService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	if id <= 0 {
		return nil, model.ErrProductNotFound
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to get product by ID")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if product == nil || product.DeletedAt != nil {
		s.logger.Debug().Int64("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return product, nil
}

// Create validates the request and inserts the product.
func (s *productService) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:          req.Name,
		Kind:          req.Kind,
		Price:         req.Price,
		TaxPercentage: req.TaxPercentage,
		Active:        req.Active,
	}
	if req.Kind == model.ProductKindPoint {
		product.Points = &model.PointDetails{Amount: req.PointAmount}
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("name", req.Name).Msg("failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().
		Int64("product_id", product.ID).
		Str("kind", string(product.Kind)).
		Msg("product created")

	return product, nil
}

func validateProduct(req *model.CreateProductRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}

	verr := &model.ValidationError{}
	if !req.Kind.Valid() {
		verr.Violations = append(verr.Violations, model.Violation{Field: "kind", Message: "must be one of: BASE POINT"})
	}
	if !req.Price.IsPositive() {
		verr.Violations = append(verr.Violations, model.Violation{Field: "price", Message: "must be greater than 0"})
	}
	if req.TaxPercentage.IsNegative() || req.TaxPercentage.GreaterThan(maxTaxPercentage) {
		verr.Violations = append(verr.Violations, model.Violation{Field: "taxPercentage", Message: "must be between 0 and 100"})
	}
	switch req.Kind {
	case model.ProductKindPoint:
		switch {
		case req.PointAmount <= 0:
			verr.Violations = append(verr.Violations, model.Violation{Field: "pointAmount", Message: "is required for point products"})
		case req.PointAmount > model.MaxPointAmount:
			verr.Violations = append(verr.Violations, model.Violation{Field: "pointAmount", Message: fmt.Sprintf("must be at most %d", model.MaxPointAmount)})
		}
	case model.ProductKindBase:
		if req.PointAmount != 0 {
			verr.Violations = append(verr.Violations, model.Violation{Field: "pointAmount", Message: "is not allowed for base products"})
		}
	}

	if len(verr.Violations) > 0 {
		return verr
	}
	return nil
}

// Delete soft-deletes a product.
func (s *productService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.productRepo.SoftDelete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if !deleted {
		return model.ErrProductNotFound
	}

	s.logger.Info().Int64("product_id", id).Msg("product deleted")

	return nil
}
