package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/notification"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type OrderItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddress string             `json:"shipping_address" binding:"required"`
	PaymentMethod   string             `json:"payment_method" binding:"required"`
}

type OrderItemResponse struct {
	ProductID       string  `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtPurchase float64 `json:"price_at_purchase"`
}

type TimelineEntry struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type OrderResponse struct {
	Code            string              `json:"code"`
	UserID          string              `json:"user_id"`
	UserName        string              `json:"user_name"`
	Items           []OrderItemResponse `json:"items"`
	TotalAmount     string              `json:"total_amount"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shipping_address"`
	PaymentMethod   string              `json:"payment_method"`
	PaymentProofRef string              `json:"payment_proof_ref,omitempty"`
	InvoiceRef      string              `json:"invoice_ref,omitempty"`
	CreatedAt       string              `json:"created_at"`
	Timeline        []TimelineEntry     `json:"timeline"`
}

// OrderConfig carries deployment switches for the lifecycle engine.
type OrderConfig struct {
	// PayOnDeliveryDirectApproval unblocks PAY_ON_DELIVERY orders for
	// approval straight from PAYMENT_PENDING, without a payment review.
	PayOnDeliveryDirectApproval bool
}

// OrderService is the order lifecycle engine. It owns order status, is the
// sole mutator of product stock, and writes one audit entry per mutating
// call. Status changes always go through the transition table in
// internal/model.
type OrderService interface {
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (OrderResponse, error)
	SubmitPaymentProof(ctx context.Context, code, userID, proofRef string) (OrderResponse, error)
	VerifyPayment(ctx context.Context, code, adminID string, approved bool) (OrderResponse, error)
	ApproveOrder(ctx context.Context, code, adminID string) (OrderResponse, error)
	AdvanceLogistics(ctx context.Context, code, staffID string, target model.OrderStatus) (OrderResponse, error)
	GetOrder(ctx context.Context, code string) (OrderResponse, error)
	ListOrders(ctx context.Context, page, limit int, status string) ([]OrderResponse, int64, error)
	ListUserOrders(ctx context.Context, userID string, page, limit int) ([]OrderResponse, int64, error)
}

type orderService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	users     repository.UserRepository
	audits    repository.AuditRepository
	movements repository.StockMovementRepository
	txManager repository.TransactionManager
	notifier  notification.Notifier
	refs      *refGenerator
	cfg       OrderConfig
}

func NewOrderService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	users repository.UserRepository,
	audits repository.AuditRepository,
	movements repository.StockMovementRepository,
	txManager repository.TransactionManager,
	notifier notification.Notifier,
	cfg OrderConfig,
) (OrderService, error) {
	refs, err := newRefGenerator()
	if err != nil {
		return nil, err
	}
	return &orderService{
		products:  products,
		orders:    orders,
		users:     users,
		audits:    audits,
		movements: movements,
		txManager: txManager,
		notifier:  notifier,
		refs:      refs,
		cfg:       cfg,
	}, nil
}

// --- Operations ---

func (s *orderService) CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (OrderResponse, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return OrderResponse{}, err
	}
	if !user.IsActive {
		return OrderResponse{}, ErrAccountInactive
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return OrderResponse{}, fmt.Errorf("unsupported payment method %q", req.PaymentMethod)
	}

	var resp OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		now := time.Now()
		order := &model.Order{
			Code:            s.refs.OrderRef(now),
			UserID:          user.ID,
			UserName:        user.Name,
			Status:          model.StatusReceived,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
		}

		total := decimal.Zero
		items := make([]model.OrderItem, 0, len(req.Items))
		for _, itemReq := range req.Items {
			pid, parseErr := uuid.Parse(itemReq.ProductID)
			if parseErr != nil {
				return fmt.Errorf("product %q: %w", itemReq.ProductID, ErrProductNotFound)
			}
			product, findErr := s.products.FindByID(txCtx, pid)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product %s: %w", itemReq.ProductID, ErrProductNotFound)
				}
				return fmt.Errorf("failed to load product %s: %w", itemReq.ProductID, findErr)
			}

			if product.Stock < itemReq.Quantity {
				return fmt.Errorf("%s: %w", product.Name, ErrInsufficientStock)
			}
			price := product.Price
			if user.Role == model.RoleWholesale {
				if itemReq.Quantity < product.MinOrderQuantity {
					return fmt.Errorf("%s requires at least %d units for wholesale: %w",
						product.Name, product.MinOrderQuantity, ErrBelowMinOrderQuantity)
				}
				price = product.WholesalePrice
			}

			total = total.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(itemReq.Quantity))))
			items = append(items, model.OrderItem{
				ProductID:       pid,
				Quantity:        itemReq.Quantity,
				PriceAtPurchase: price,
			})
		}
		order.TotalAmount = total
		order.InvoiceRef = s.refs.InvoiceRef(order.Code)

		if createErr := s.orders.Create(txCtx, order); createErr != nil {
			return fmt.Errorf("failed to create order: %w", createErr)
		}
		for i := range items {
			items[i].OrderID = order.ID
			if itemErr := s.orders.CreateItem(txCtx, &items[i]); itemErr != nil {
				return fmt.Errorf("failed to create order item: %w", itemErr)
			}
		}
		order.Items = items

		if evErr := s.appendEvent(txCtx, order); evErr != nil {
			return evErr
		}

		// Invoice generation is a synchronous stamp, not an external call.
		if advErr := s.advance(txCtx, order, model.StatusInvoiceGenerated); advErr != nil {
			return advErr
		}

		switch order.PaymentMethod {
		case model.PaymentOnlineCard:
			// The card gateway is an immediate success oracle here.
			if advErr := s.advance(txCtx, order, model.StatusPaymentConfirmed); advErr != nil {
				return advErr
			}
		default:
			if advErr := s.advance(txCtx, order, model.StatusPaymentPending); advErr != nil {
				return advErr
			}
		}

		s.audit(txCtx, user, model.ActionCreateOrder, order.Code,
			fmt.Sprintf("order created via %s, %d line items, total %s",
				order.PaymentMethod, len(order.Items), order.TotalAmount.StringFixed(2)))

		resp = toOrderResponse(order)
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	switch req.PaymentMethod {
	case model.PaymentOnlineCard:
		s.notifier.Notify(user.ID.String(), fmt.Sprintf("Payment received. Order %s confirmed.", resp.Code))
	case model.PaymentBankTransfer:
		s.notifier.Notify(user.ID.String(), fmt.Sprintf("Invoice generated. Please upload proof of payment for order %s.", resp.Code))
	case model.PaymentOnDelivery:
		s.notifier.Notify(user.ID.String(), fmt.Sprintf("Order %s placed (pay on delivery). Awaiting admin confirmation.", resp.Code))
	}

	return resp, nil
}

func (s *orderService) SubmitPaymentProof(ctx context.Context, code, userID, proofRef string) (OrderResponse, error) {
	actor, err := s.lookupUser(ctx, userID)
	if err != nil {
		return OrderResponse{}, err
	}

	var resp OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.lockOrder(txCtx, code)
		if findErr != nil {
			return findErr
		}
		if actor.Role != model.RoleAdmin && order.UserID != actor.ID {
			return ErrNotOrderOwner
		}
		if order.PaymentMethod != model.PaymentBankTransfer {
			return fmt.Errorf("proof upload only applies to bank transfers: %w", ErrInvalidState)
		}
		if order.Status != model.StatusPaymentPending {
			return fmt.Errorf("order is %s: %w", order.Status, ErrInvalidState)
		}

		if setErr := s.orders.SetPaymentProof(txCtx, order.ID, proofRef); setErr != nil {
			return fmt.Errorf("failed to store payment proof: %w", setErr)
		}
		order.PaymentProofRef = proofRef

		if advErr := s.advance(txCtx, order, model.StatusPaymentReview); advErr != nil {
			return advErr
		}

		s.audit(txCtx, actor, model.ActionUploadProof, order.Code, "payment proof uploaded")
		resp = toOrderResponse(order)
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}
	return resp, nil
}

func (s *orderService) VerifyPayment(ctx context.Context, code, adminID string, approved bool) (OrderResponse, error) {
	admin, err := s.lookupUser(ctx, adminID)
	if err != nil {
		return OrderResponse{}, err
	}

	var resp OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.lockOrder(txCtx, code)
		if findErr != nil {
			return findErr
		}
		if order.Status != model.StatusPaymentReview {
			return fmt.Errorf("order is %s: %w", order.Status, ErrInvalidState)
		}

		// On rejection the proof reference is kept for reference; the
		// buyer must resubmit to get back into review.
		next := model.StatusPaymentConfirmed
		detail := "payment approved"
		if !approved {
			next = model.StatusPaymentPending
			detail = "payment proof rejected, resubmission required"
		}
		if advErr := s.advance(txCtx, order, next); advErr != nil {
			return advErr
		}

		s.audit(txCtx, admin, model.ActionVerifyPayment, order.Code, detail)
		resp = toOrderResponse(order)
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	if approved {
		s.notifier.Notify(resp.UserID, fmt.Sprintf("Payment verified for order %s.", resp.Code))
	} else {
		s.notifier.Notify(resp.UserID, fmt.Sprintf("Payment proof rejected for order %s. Please resubmit.", resp.Code))
	}
	return resp, nil
}

func (s *orderService) ApproveOrder(ctx context.Context, code, adminID string) (OrderResponse, error) {
	admin, err := s.lookupUser(ctx, adminID)
	if err != nil {
		return OrderResponse{}, err
	}

	var resp OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.lockOrder(txCtx, code)
		if findErr != nil {
			return findErr
		}

		switch {
		case order.Status == model.StatusPaymentConfirmed:
		case order.Status == model.StatusPaymentPending &&
			order.PaymentMethod == model.PaymentOnDelivery &&
			s.cfg.PayOnDeliveryDirectApproval:
		case order.Status == model.StatusPaymentPending || order.Status == model.StatusPaymentReview:
			return fmt.Errorf("order is %s: %w", order.Status, ErrPaymentNotSettled)
		default:
			return fmt.Errorf("approve from %s: %w", order.Status, ErrInvalidState)
		}

		// Inventory sync: every line item settles or none does. TrySettle
		// is a conditional decrement, so a failure on a later line means
		// compensating the earlier ones before bailing out.
		settled := make([]model.OrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			ok, settleErr := s.products.TrySettle(txCtx, item.ProductID, item.Quantity)
			if settleErr != nil {
				return fmt.Errorf("failed to settle stock for %s: %w", item.ProductID, settleErr)
			}
			if !ok {
				for _, done := range settled {
					if restockErr := s.products.Restock(txCtx, done.ProductID, done.Quantity); restockErr != nil {
						log.Printf("[ENGINE] restock of %s failed during compensation: %v", done.ProductID, restockErr)
					}
				}
				return fmt.Errorf("product %s: %w", item.ProductID, ErrInsufficientStock)
			}
			settled = append(settled, item)
		}

		for _, item := range order.Items {
			product, loadErr := s.products.FindByID(txCtx, item.ProductID)
			if loadErr != nil {
				return fmt.Errorf("failed to reload product %s: %w", item.ProductID, loadErr)
			}
			movement := &model.StockMovement{
				ProductID:    item.ProductID,
				OrderID:      &order.ID,
				MovementType: model.MovementOut,
				Quantity:     item.Quantity,
				StockAfter:   product.Stock,
			}
			if movErr := s.movements.Create(txCtx, movement); movErr != nil {
				return fmt.Errorf("failed to record stock movement: %w", movErr)
			}
		}

		if advErr := s.advance(txCtx, order, model.StatusOrderApproved); advErr != nil {
			return advErr
		}

		s.audit(txCtx, admin, model.ActionApproveOrder, order.Code,
			fmt.Sprintf("inventory synced, %d line items settled", len(order.Items)))
		resp = toOrderResponse(order)
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.notifier.Notify(resp.UserID, fmt.Sprintf("Order %s approved and handed to logistics.", resp.Code))
	return resp, nil
}

func (s *orderService) AdvanceLogistics(ctx context.Context, code, staffID string, target model.OrderStatus) (OrderResponse, error) {
	staff, err := s.lookupUser(ctx, staffID)
	if err != nil {
		return OrderResponse{}, err
	}
	if !target.Valid() {
		return OrderResponse{}, fmt.Errorf("unknown status %q: %w", target, ErrInvalidTransition)
	}

	var resp OrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.lockOrder(txCtx, code)
		if findErr != nil {
			return findErr
		}

		next, ok := order.Status.NextLogisticsStep()
		if !ok {
			return fmt.Errorf("order is %s: %w", order.Status, ErrInvalidState)
		}
		if target != next {
			return fmt.Errorf("%s -> %s: %w", order.Status, target, ErrInvalidTransition)
		}

		if advErr := s.advance(txCtx, order, target); advErr != nil {
			return advErr
		}

		s.audit(txCtx, staff, model.ActionLogisticsUpdate, order.Code,
			fmt.Sprintf("status updated to %s", target))
		resp = toOrderResponse(order)
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	if target == model.StatusDelivered {
		s.notifier.Notify(resp.UserID, fmt.Sprintf("Order %s has been delivered. Thank you!", resp.Code))
	}
	return resp, nil
}

func (s *orderService) GetOrder(ctx context.Context, code string) (OrderResponse, error) {
	order, err := s.orders.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, ErrOrderNotFound
		}
		return OrderResponse{}, fmt.Errorf("failed to load order: %w", err)
	}
	return toOrderResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, page, limit int, status string) ([]OrderResponse, int64, error) {
	if status != "" && !model.OrderStatus(status).Valid() {
		return nil, 0, fmt.Errorf("unknown status filter %q", status)
	}
	orders, total, err := s.orders.List(ctx, page, limit, model.OrderStatus(status))
	if err != nil {
		return nil, 0, err
	}
	return toOrderResponses(orders), total, nil
}

func (s *orderService) ListUserOrders(ctx context.Context, userID string, page, limit int) ([]OrderResponse, int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, ErrUserNotFound
	}
	orders, total, listErr := s.orders.ListByUser(ctx, uid, page, limit)
	if listErr != nil {
		return nil, 0, listErr
	}
	return toOrderResponses(orders), total, nil
}

// --- Internals ---

func (s *orderService) lookupUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

func (s *orderService) lockOrder(ctx context.Context, code string) (*model.Order, error) {
	order, err := s.orders.FindByCodeForUpdate(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// advance moves the order to next after consulting the transition table,
// persisting the status and appending the matching timeline entry.
func (s *orderService) advance(ctx context.Context, order *model.Order, next model.OrderStatus) error {
	if !order.Status.CanTransitionTo(next) {
		return fmt.Errorf("%s -> %s: %w", order.Status, next, ErrInvalidState)
	}
	if err := s.orders.UpdateStatus(ctx, order.ID, next); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = next
	return s.appendEvent(ctx, order)
}

func (s *orderService) appendEvent(ctx context.Context, order *model.Order) error {
	event := model.OrderStatusEvent{
		OrderID:   order.ID,
		Status:    order.Status,
		CreatedAt: time.Now(),
	}
	if err := s.orders.AppendEvent(ctx, &event); err != nil {
		return fmt.Errorf("failed to append timeline entry: %w", err)
	}
	order.Timeline = append(order.Timeline, event)
	return nil
}

// audit records the action; a failed write is logged and swallowed so it
// can never fail the operation that produced it.
func (s *orderService) audit(ctx context.Context, actor *model.User, action, target, details string) {
	entry := &model.AuditLog{
		PerformedBy: actor.Email,
		UserID:      &actor.ID,
		Action:      action,
		TargetID:    target,
		Details:     details,
	}
	if err := s.audits.Log(ctx, entry); err != nil {
		log.Printf("[AUDIT] write failed for %s on %s: %v", action, target, err)
	}
}

func toOrderResponse(order *model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID:       item.ProductID.String(),
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	timeline := make([]TimelineEntry, 0, len(order.Timeline))
	for _, ev := range order.Timeline {
		timeline = append(timeline, TimelineEntry{
			Status:    string(ev.Status),
			Timestamp: ev.CreatedAt.Format(time.RFC3339),
		})
	}

	return OrderResponse{
		Code:            order.Code,
		UserID:          order.UserID.String(),
		UserName:        order.UserName,
		Items:           items,
		TotalAmount:     order.TotalAmount.StringFixed(2),
		Status:          string(order.Status),
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		PaymentProofRef: order.PaymentProofRef,
		InvoiceRef:      order.InvoiceRef,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		Timeline:        timeline,
	}
}

func toOrderResponses(orders []model.Order) []OrderResponse {
	res := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toOrderResponse(&orders[i]))
	}
	return res
}
