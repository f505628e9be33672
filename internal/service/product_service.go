package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"omitempty,oneof=SERVICE CONSUMABLE"`
	SalesPrice  string `json:"sales_price" binding:"required"`
	CostPrice   string `json:"cost_price"`
	TaxID       string `json:"tax_id"`
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	SalesPrice  *string `json:"sales_price"`
	CostPrice   *string `json:"cost_price"`
	TaxID       *string `json:"tax_id"` // empty string clears the tax
	IsActive    *bool   `json:"is_active"`
}

type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type"`
	SalesPrice  string  `json:"sales_price"`
	CostPrice   string  `json:"cost_price"`
	TaxID       *string `json:"tax_id"`
	TaxName     string  `json:"tax_name,omitempty"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error)
	GetProduct(ctx context.Context, id string) (ProductResponse, error)
	ListProducts(ctx context.Context, page, limit int, search string, activeOnly bool) ([]ProductResponse, int64, error)
	DeleteProduct(ctx context.Context, id string) error
}

type productService struct {
	productRepo repository.ProductRepository
	taxRepo     repository.TaxRepository
}

func NewProductService(productRepo repository.ProductRepository, taxRepo repository.TaxRepository) ProductService {
	return &productService{productRepo: productRepo, taxRepo: taxRepo}
}

func (s *productService) CreateProduct(ctx context.Context, req CreateProductRequest) (ProductResponse, error) {
	salesPrice, err := decimal.NewFromString(req.SalesPrice)
	if err != nil {
		return ProductResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid sales_price")
	}
	if salesPrice.IsNegative() {
		return ProductResponse{}, apperror.New(apperror.KindValidation, "sales_price cannot be negative")
	}

	costPrice := decimal.Zero
	if req.CostPrice != "" {
		costPrice, err = decimal.NewFromString(req.CostPrice)
		if err != nil {
			return ProductResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid cost_price")
		}
	}

	productType := req.Type
	if productType == "" {
		productType = model.ProductTypeService
	}

	var taxID *uuid.UUID
	if req.TaxID != "" {
		id, parseErr := uuid.Parse(req.TaxID)
		if parseErr != nil {
			return ProductResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid tax_id")
		}
		if _, findErr := s.taxRepo.FindByID(ctx, id); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return ProductResponse{}, apperror.New(apperror.KindNotFound, "tax not found")
			}
			return ProductResponse{}, fmt.Errorf("failed to fetch tax: %w", findErr)
		}
		taxID = &id
	}

	product := model.Product{
		Name:        req.Name,
		Description: req.Description,
		Type:        productType,
		SalesPrice:  salesPrice,
		CostPrice:   costPrice,
		TaxID:       taxID,
		IsActive:    true,
	}

	if err := s.productRepo.Create(ctx, &product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to create product: %w", err)
	}

	return toProductResponse(product), nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid product id")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperror.New(apperror.KindNotFound, "product not found")
		}
		return ProductResponse{}, fmt.Errorf("failed to fetch product: %w", err)
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.SalesPrice != nil {
		salesPrice, parseErr := decimal.NewFromString(*req.SalesPrice)
		if parseErr != nil {
			return ProductResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid sales_price")
		}
		product.SalesPrice = salesPrice
	}
	if req.CostPrice != nil {
		costPrice, parseErr := decimal.NewFromString(*req.CostPrice)
		if parseErr != nil {
			return ProductResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid cost_price")
		}
		product.CostPrice = costPrice
	}
	if req.TaxID != nil {
		if *req.TaxID == "" {
			product.TaxID = nil
		} else {
			taxID, parseErr := uuid.Parse(*req.TaxID)
			if parseErr != nil {
				return ProductResponse{}, apperror.Wrap(apperror.KindValidation, parseErr, "invalid tax_id")
			}
			if _, findErr := s.taxRepo.FindByID(ctx, taxID); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return ProductResponse{}, apperror.New(apperror.KindNotFound, "tax not found")
				}
				return ProductResponse{}, fmt.Errorf("failed to fetch tax: %w", findErr)
			}
			product.TaxID = &taxID
		}
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return ProductResponse{}, fmt.Errorf("failed to update product: %w", err)
	}

	return toProductResponse(*product), nil
}

func (s *productService) GetProduct(ctx context.Context, id string) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, apperror.Wrap(apperror.KindValidation, err, "invalid product id")
	}

	product, err := s.productRepo.FindByIDWithTax(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, apperror.New(apperror.KindNotFound, "product not found")
		}
		return ProductResponse{}, fmt.Errorf("failed to fetch product: %w", err)
	}

	return toProductResponse(*product), nil
}

func (s *productService) ListProducts(ctx context.Context, page, limit int, search string, activeOnly bool) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search, activeOnly)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch products: %w", err)
	}

	result := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		result = append(result, toProductResponse(p))
	}
	return result, total, nil
}

// DeleteProduct soft-deletes; historical document lines keep their price
// and description snapshots regardless.
func (s *productService) DeleteProduct(ctx context.Context, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Wrap(apperror.KindValidation, err, "invalid product id")
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.New(apperror.KindNotFound, "product not found")
		}
		return fmt.Errorf("failed to fetch product: %w", err)
	}

	return s.productRepo.Delete(ctx, productID)
}

func toProductResponse(p model.Product) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		SalesPrice:  p.SalesPrice.StringFixed(2),
		CostPrice:   p.CostPrice.StringFixed(2),
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.TaxID != nil {
		id := p.TaxID.String()
		resp.TaxID = &id
	}
	if p.Tax != nil {
		resp.TaxName = p.Tax.Name
	}
	return resp
}
