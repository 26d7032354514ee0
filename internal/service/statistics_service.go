package service

import (
	"context"
	"time"

	"backend/internal/model"

	"gorm.io/gorm"
)

// settledStatuses are the order states that count towards sales figures.
// Anything earlier in the lifecycle may still fail payment or approval.
var settledStatuses = []model.OrderStatus{
	model.StatusOrderApproved,
	model.StatusPacked,
	model.StatusDispatched,
	model.StatusDelivered,
}

type StatisticsService interface {
	GetSalesStatistics(ctx context.Context, startDate, endDate time.Time) (model.SalesStatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetSalesStatistics aggregates revenue, order counts and product rankings
// over the given time range. Only approved-or-later orders are counted.
func (s *statisticsService) GetSalesStatistics(ctx context.Context, startDate, endDate time.Time) (model.SalesStatisticsResponse, error) {
	var response model.SalesStatisticsResponse
	response.TimeRangeStartDate = startDate
	response.TimeRangeEndDate = endDate

	// Totals
	var totals struct {
		Revenue float64
		Orders  int
	}
	if err := s.db.WithContext(ctx).Table("orders").
		Select("COALESCE(SUM(total_amount), 0) as revenue, COUNT(*) as orders").
		Where("status IN ? AND created_at >= ? AND created_at <= ?", settledStatuses, startDate, endDate).
		Scan(&totals).Error; err != nil {
		return response, err
	}
	response.TotalRevenue = totals.Revenue
	response.TotalOrders = totals.Orders

	// Per-day revenue buckets
	var daily []model.DailySales
	if err := s.db.WithContext(ctx).Table("orders").
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as day, COALESCE(SUM(total_amount), 0) as revenue, COUNT(*) as orders").
		Where("status IN ? AND created_at >= ? AND created_at <= ?", settledStatuses, startDate, endDate).
		Group("day").
		Order("day ASC").
		Scan(&daily).Error; err != nil {
		return response, err
	}
	response.Daily = daily

	// Top products by quantity sold
	var topProducts []model.ProductRanking
	if err := s.db.WithContext(ctx).Table("order_items").
		Select("products.id as product_id, products.name as product_name, products.sku as product_sku, SUM(order_items.quantity) as total_quantity, SUM(order_items.quantity * order_items.price_at_purchase) as total_value").
		Joins("JOIN products ON products.id = order_items.product_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status IN ? AND orders.created_at >= ? AND orders.created_at <= ?", settledStatuses, startDate, endDate).
		Group("products.id, products.name, products.sku").
		Order("total_quantity DESC").
		Limit(5).
		Scan(&topProducts).Error; err != nil {
		return response, err
	}
	response.TopProducts = topProducts

	return response, nil
}
