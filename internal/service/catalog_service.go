package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductResponse struct {
	ID                   string  `json:"id"`
	SKU                  string  `json:"sku"`
	Name                 string  `json:"name"`
	Category             string  `json:"category"`
	Description          string  `json:"description"`
	PackSize             string  `json:"pack_size"`
	Price                float64 `json:"price"`
	WholesalePrice       float64 `json:"wholesale_price"`
	Stock                int     `json:"stock"`
	RequiresPrescription bool    `json:"requires_prescription"`
	MinOrderQuantity     int     `json:"min_order_quantity"`
	ImageURL             string  `json:"image_url"`
}

type StockMovementResponse struct {
	ID           string `json:"id"`
	ProductID    string `json:"product_id"`
	OrderID      string `json:"order_id,omitempty"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	StockAfter   int    `json:"stock_after"`
	CreatedAt    string `json:"created_at"`
}

// CatalogService is the read-side of the catalog store. Stock is only ever
// written by the order engine's approval step.
type CatalogService interface {
	GetProducts(ctx context.Context, page, limit int, search, category string) ([]ProductResponse, int64, error)
	GetProductByID(ctx context.Context, id string) (ProductResponse, error)
	GetStockMovements(ctx context.Context, productID string, page, limit int) ([]StockMovementResponse, int64, error)
}

type catalogService struct {
	products  repository.ProductRepository
	movements repository.StockMovementRepository
}

func NewCatalogService(products repository.ProductRepository, movements repository.StockMovementRepository) CatalogService {
	return &catalogService{products: products, movements: movements}
}

func (s *catalogService) GetProducts(ctx context.Context, page, limit int, search, category string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.products.List(ctx, page, limit, search, category)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *catalogService) GetProductByID(ctx context.Context, id string) (ProductResponse, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, ErrProductNotFound
	}

	product, err := s.products.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, ErrProductNotFound
		}
		return ProductResponse{}, fmt.Errorf("failed to load product: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *catalogService) GetStockMovements(ctx context.Context, productID string, page, limit int) ([]StockMovementResponse, int64, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, 0, ErrProductNotFound
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	movements, total, err := s.movements.ListByProduct(ctx, pid, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]StockMovementResponse, 0, len(movements))
	for _, m := range movements {
		orderID := ""
		if m.OrderID != nil {
			orderID = m.OrderID.String()
		}
		res = append(res, StockMovementResponse{
			ID:           m.ID.String(),
			ProductID:    m.ProductID.String(),
			OrderID:      orderID,
			MovementType: m.MovementType,
			Quantity:     m.Quantity,
			StockAfter:   m.StockAfter,
			CreatedAt:    m.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}

func toProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:                   p.ID.String(),
		SKU:                  p.SKU,
		Name:                 p.Name,
		Category:             p.Category,
		Description:          p.Description,
		PackSize:             p.PackSize,
		Price:                p.Price,
		WholesalePrice:       p.WholesalePrice,
		Stock:                p.Stock,
		RequiresPrescription: p.RequiresPrescription,
		MinOrderQuantity:     p.MinOrderQuantity,
		ImageURL:             p.ImageURL,
	}
}
