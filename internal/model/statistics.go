package model

import "time"

// DailySales is one bucket of the sales chart: revenue and order count for
// a single calendar day.
type DailySales struct {
	Day     string  `json:"day"` // YYYY-MM-DD
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// ProductRanking ranks products by quantity sold in a period.
type ProductRanking struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	ProductSKU    string  `json:"product_sku"`
	TotalQuantity int     `json:"total_quantity"`
	TotalValue    float64 `json:"total_value"`
}

// SalesStatisticsResponse aggregates sales metrics over a time range.
// Only orders that reached approval or a later state count.
type SalesStatisticsResponse struct {
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
	TotalRevenue       float64          `json:"total_revenue"`
	TotalOrders        int              `json:"total_orders"`
	Daily              []DailySales     `json:"daily"`
	TopProducts        []ProductRanking `json:"top_products"`
}
