package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateItem(ctx context.Context, item *model.OrderItem) error
	AppendEvent(ctx context.Context, event *model.OrderStatusEvent) error
	FindByCode(ctx context.Context, code string) (*model.Order, error)
	// FindByCodeForUpdate locks the order row for the duration of the
	// surrounding transaction, serializing concurrent mutations per order.
	FindByCodeForUpdate(ctx context.Context, code string) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
	SetPaymentProof(ctx context.Context, id uuid.UUID, proofRef string) error
	List(ctx context.Context, page, limit int, status model.OrderStatus) ([]model.Order, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Omit("Items", "Timeline").Create(order).Error
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.OrderItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *orderRepository) AppendEvent(ctx context.Context, event *model.OrderStatusEvent) error {
	return GetDB(ctx, r.db).Create(event).Error
}

func timelineOrdered(db *gorm.DB) *gorm.DB {
	return db.Order("order_status_events.seq ASC")
}

func (r *orderRepository) FindByCode(ctx context.Context, code string) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Timeline", timelineOrdered).
		First(&order, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByCodeForUpdate(ctx context.Context, code string) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "code = ?", code).Error; err != nil {
		return nil, err
	}
	// Associations are loaded separately; only the order row itself is locked.
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Timeline", timelineOrdered).
		First(&order, "id = ?", order.ID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) SetPaymentProof(ctx context.Context, id uuid.UUID, proofRef string) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("payment_proof_ref", proofRef).Error
}

func (r *orderRepository) List(ctx context.Context, page, limit int, status model.OrderStatus) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Preload("Timeline", timelineOrdered).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Order{}).Where("user_id = ?", userID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Preload("Timeline", timelineOrdered).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
