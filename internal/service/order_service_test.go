package service_test

import (
	"context"
	"sync"
	"testing"

	"backend/internal/model"
	"backend/internal/notification"
	"backend/internal/repository/memory"
	"backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	store       *memory.Store
	svc         service.OrderService
	buyer       *model.User
	wholesale   *model.User
	admin       *model.User
	logistics   *model.User
	paracetamol *model.Product
	vitamin     *model.Product
}

func newEngine(t *testing.T, cfg service.OrderConfig) *engineFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	f := &engineFixture{store: store}

	f.buyer = &model.User{Name: "John Doe", Email: "john@public.com", Role: model.RolePublic, IsActive: true}
	f.wholesale = &model.User{Name: "MediCorp", Email: "purchasing@medicorp.com", Role: model.RoleWholesale, IsActive: true}
	f.admin = &model.User{Name: "Admin", Email: "admin@kingzypharma.com", Role: model.RoleAdmin, IsActive: true}
	f.logistics = &model.User{Name: "Logistics", Email: "delivery@kingzypharma.com", Role: model.RoleLogistics, IsActive: true}
	for _, u := range []*model.User{f.buyer, f.wholesale, f.admin, f.logistics} {
		require.NoError(t, store.Users().Create(ctx, u))
	}

	f.paracetamol = &model.Product{
		SKU: "PCM-500", Name: "Paracetamol 500mg", Category: "Pain Relief",
		Price: 500, WholesalePrice: 350, Stock: 2000, MinOrderQuantity: 100,
	}
	f.vitamin = &model.Product{
		SKU: "VIT-D3", Name: "Vitamin D3 1000IU", Category: "Vitamins",
		Price: 4500, WholesalePrice: 3200, Stock: 5, MinOrderQuantity: 10,
	}
	require.NoError(t, store.Products().Create(ctx, f.paracetamol))
	require.NoError(t, store.Products().Create(ctx, f.vitamin))

	svc, err := service.NewOrderService(
		store.Products(), store.Orders(), store.Users(), store.Audits(),
		store.StockMovements(), store.TxManager(), notification.LogNotifier{}, cfg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *engineFixture) placeOrder(t *testing.T, userID, method string, items ...service.OrderItemRequest) service.OrderResponse {
	t.Helper()
	resp, err := f.svc.CreateOrder(context.Background(), userID, service.CreateOrderRequest{
		Items:           items,
		ShippingAddress: "12 Harbor Road",
		PaymentMethod:   method,
	})
	require.NoError(t, err)
	return resp
}

func timelineStatuses(resp service.OrderResponse) []string {
	out := make([]string, 0, len(resp.Timeline))
	for _, e := range resp.Timeline {
		out = append(out, e.Status)
	}
	return out
}

func TestCreateOrderOnlineCard(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})

	resp := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 2})

	assert.Equal(t, string(model.StatusPaymentConfirmed), resp.Status)
	assert.Equal(t, []string{"RECEIVED", "INVOICE_GENERATED", "PAYMENT_CONFIRMED"}, timelineStatuses(resp))
	assert.Equal(t, "1000.00", resp.TotalAmount)
	assert.NotEmpty(t, resp.InvoiceRef)
	assert.Equal(t, "INV-"+resp.Code[len("ORD-"):], resp.InvoiceRef)

	// Stock is untouched until approval.
	p, err := f.store.Products().FindByID(context.Background(), f.paracetamol.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000, p.Stock)
}

func TestCreateOrderBankTransferLandsInPaymentPending(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})

	resp := f.placeOrder(t, f.buyer.ID.String(), model.PaymentBankTransfer,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})

	assert.Equal(t, string(model.StatusPaymentPending), resp.Status)
	assert.Equal(t, []string{"RECEIVED", "INVOICE_GENERATED", "PAYMENT_PENDING"}, timelineStatuses(resp))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	t.Run("unknown payment method", func(t *testing.T) {
		_, err := f.svc.CreateOrder(ctx, f.buyer.ID.String(), service.CreateOrderRequest{
			Items:           []service.OrderItemRequest{{ProductID: f.paracetamol.ID.String(), Quantity: 1}},
			ShippingAddress: "addr",
			PaymentMethod:   "CHEQUE",
		})
		assert.Error(t, err)
	})

	t.Run("insufficient stock at creation", func(t *testing.T) {
		_, err := f.svc.CreateOrder(ctx, f.buyer.ID.String(), service.CreateOrderRequest{
			Items:           []service.OrderItemRequest{{ProductID: f.vitamin.ID.String(), Quantity: 6}},
			ShippingAddress: "addr",
			PaymentMethod:   model.PaymentOnlineCard,
		})
		assert.ErrorIs(t, err, service.ErrInsufficientStock)
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := f.svc.CreateOrder(ctx, f.buyer.ID.String(), service.CreateOrderRequest{
			Items:           []service.OrderItemRequest{{ProductID: "3b9e9e8e-0000-0000-0000-000000000000", Quantity: 1}},
			ShippingAddress: "addr",
			PaymentMethod:   model.PaymentOnlineCard,
		})
		assert.ErrorIs(t, err, service.ErrProductNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.CreateOrder(ctx, "not-a-uuid", service.CreateOrderRequest{
			Items:           []service.OrderItemRequest{{ProductID: f.paracetamol.ID.String(), Quantity: 1}},
			ShippingAddress: "addr",
			PaymentMethod:   model.PaymentOnlineCard,
		})
		assert.ErrorIs(t, err, service.ErrUserNotFound)
	})
}

func TestWholesalePricingAndMinimumQuantity(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, f.wholesale.ID.String(), service.CreateOrderRequest{
		Items:           []service.OrderItemRequest{{ProductID: f.paracetamol.ID.String(), Quantity: 50}},
		ShippingAddress: "warehouse 4",
		PaymentMethod:   model.PaymentBankTransfer,
	})
	assert.ErrorIs(t, err, service.ErrBelowMinOrderQuantity)

	resp := f.placeOrder(t, f.wholesale.ID.String(), model.PaymentBankTransfer,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 100})
	// 100 * 350 wholesale, not 100 * 500 retail
	assert.Equal(t, "35000.00", resp.TotalAmount)
}

func TestInactiveAccountCannotOrder(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	pending := &model.User{Name: "New Pharmacy", Email: "new@pharmacy.com", Role: model.RoleWholesale, IsActive: false}
	require.NoError(t, f.store.Users().Create(ctx, pending))

	_, err := f.svc.CreateOrder(ctx, pending.ID.String(), service.CreateOrderRequest{
		Items:           []service.OrderItemRequest{{ProductID: f.paracetamol.ID.String(), Quantity: 100}},
		ShippingAddress: "addr",
		PaymentMethod:   model.PaymentBankTransfer,
	})
	assert.ErrorIs(t, err, service.ErrAccountInactive)
}

func TestBankTransferReviewCycle(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentBankTransfer,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 4})

	// Approving before any payment settles is refused.
	_, err := f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	assert.ErrorIs(t, err, service.ErrPaymentNotSettled)

	// Proof upload moves the order into review.
	reviewed, err := f.svc.SubmitPaymentProof(ctx, order.Code, f.buyer.ID.String(), "receipt-001.pdf")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPaymentReview), reviewed.Status)
	assert.Equal(t, "receipt-001.pdf", reviewed.PaymentProofRef)

	// A second upload while in review is refused.
	_, err = f.svc.SubmitPaymentProof(ctx, order.Code, f.buyer.ID.String(), "receipt-002.pdf")
	assert.ErrorIs(t, err, service.ErrInvalidState)

	// Rejection returns the order to PAYMENT_PENDING, keeping the proof ref.
	rejected, err := f.svc.VerifyPayment(ctx, order.Code, f.admin.ID.String(), false)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPaymentPending), rejected.Status)
	assert.Equal(t, "receipt-001.pdf", rejected.PaymentProofRef)

	// Still not approvable.
	_, err = f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	assert.ErrorIs(t, err, service.ErrPaymentNotSettled)

	// Resubmission opens a second review round.
	resubmitted, err := f.svc.SubmitPaymentProof(ctx, order.Code, f.buyer.ID.String(), "receipt-002.pdf")
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPaymentReview), resubmitted.Status)

	confirmed, err := f.svc.VerifyPayment(ctx, order.Code, f.admin.ID.String(), true)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPaymentConfirmed), confirmed.Status)

	assert.Equal(t, []string{
		"RECEIVED", "INVOICE_GENERATED", "PAYMENT_PENDING",
		"PAYMENT_REVIEW", "PAYMENT_PENDING", "PAYMENT_REVIEW", "PAYMENT_CONFIRMED",
	}, timelineStatuses(confirmed))
}

func TestSubmitPaymentProofOwnership(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentBankTransfer,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})

	_, err := f.svc.SubmitPaymentProof(ctx, order.Code, f.wholesale.ID.String(), "forged.pdf")
	assert.ErrorIs(t, err, service.ErrNotOrderOwner)

	// Admins may upload on the buyer's behalf.
	_, err = f.svc.SubmitPaymentProof(ctx, order.Code, f.admin.ID.String(), "receipt.pdf")
	assert.NoError(t, err)
}

func TestProofUploadOnlyForBankTransfer(t *testing.T) {
	f := newEngine(t, service.OrderConfig{PayOnDeliveryDirectApproval: true})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnDelivery,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})

	_, err := f.svc.SubmitPaymentProof(ctx, order.Code, f.buyer.ID.String(), "receipt.pdf")
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestApproveDeductsStockAndWritesLedger(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.vitamin.ID.String(), Quantity: 3})

	approved, err := f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusOrderApproved), approved.Status)

	p, err := f.store.Products().FindByID(ctx, f.vitamin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	movements, total, err := f.store.StockMovements().ListByProduct(ctx, f.vitamin.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.MovementOut, movements[0].MovementType)
	assert.Equal(t, 3, movements[0].Quantity)
	assert.Equal(t, 2, movements[0].StockAfter)
}

func TestApproveIsNotRepeatable(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.vitamin.ID.String(), Quantity: 2})

	_, err := f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	require.NoError(t, err)

	// Replay must fail and must not deduct stock a second time.
	_, err = f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	assert.ErrorIs(t, err, service.ErrInvalidState)

	p, err := f.store.Products().FindByID(ctx, f.vitamin.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestConcurrentApprovalOfSameOrder(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.vitamin.ID.String(), Quantity: 2})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, service.ErrInvalidState)
		}
	}
	assert.Equal(t, 1, succeeded)

	p, err := f.store.Products().FindByID(ctx, f.vitamin.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestConcurrentApprovalContendingForStock(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	// Both orders want all 5 remaining units; only one can settle.
	first := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.vitamin.ID.String(), Quantity: 5})
	second := f.placeOrder(t, f.wholesale.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.vitamin.ID.String(), Quantity: 5})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, code := range []string{first.Code, second.Code} {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			_, errs[i] = f.svc.ApproveOrder(ctx, code, f.admin.ID.String())
		}(i, code)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, service.ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)

	p, err := f.store.Products().FindByID(ctx, f.vitamin.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}

func TestApproveCompensatesPartialSettlement(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	// Two line items; the second cannot settle after a competing order
	// drains the vitamin stock. The paracetamol deduction must be undone.
	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 10},
		service.OrderItemRequest{ProductID: f.vitamin.ID.String(), Quantity: 5})

	drain := f.placeOrder(t, f.wholesale.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.vitamin.ID.String(), Quantity: 4})
	_, err := f.svc.ApproveOrder(ctx, drain.Code, f.admin.ID.String())
	require.NoError(t, err)

	_, err = f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	assert.ErrorIs(t, err, service.ErrInsufficientStock)

	p, err := f.store.Products().FindByID(ctx, f.paracetamol.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000, p.Stock)

	got, err := f.svc.GetOrder(ctx, order.Code)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusPaymentConfirmed), got.Status)
}

func TestPayOnDeliveryApprovalFlag(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		f := newEngine(t, service.OrderConfig{PayOnDeliveryDirectApproval: true})
		order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnDelivery,
			service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})
		assert.Equal(t, string(model.StatusPaymentPending), order.Status)

		approved, err := f.svc.ApproveOrder(context.Background(), order.Code, f.admin.ID.String())
		require.NoError(t, err)
		assert.Equal(t, string(model.StatusOrderApproved), approved.Status)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newEngine(t, service.OrderConfig{PayOnDeliveryDirectApproval: false})
		order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnDelivery,
			service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})

		_, err := f.svc.ApproveOrder(context.Background(), order.Code, f.admin.ID.String())
		assert.ErrorIs(t, err, service.ErrPaymentNotSettled)
	})
}

func TestLogisticsChain(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})
	_, err := f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	require.NoError(t, err)

	// Skipping a step is refused.
	_, err = f.svc.AdvanceLogistics(ctx, order.Code, f.logistics.ID.String(), model.StatusDispatched)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	// Unknown target status.
	_, err = f.svc.AdvanceLogistics(ctx, order.Code, f.logistics.ID.String(), model.OrderStatus("SHIPPED"))
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	for _, step := range []model.OrderStatus{model.StatusPacked, model.StatusDispatched, model.StatusDelivered} {
		resp, stepErr := f.svc.AdvanceLogistics(ctx, order.Code, f.logistics.ID.String(), step)
		require.NoError(t, stepErr)
		assert.Equal(t, string(step), resp.Status)
		assert.Equal(t, string(step), resp.Timeline[len(resp.Timeline)-1].Status)
	}

	// DELIVERED is terminal.
	_, err = f.svc.AdvanceLogistics(ctx, order.Code, f.logistics.ID.String(), model.StatusDelivered)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestAuditTrail(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	order := f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})
	_, err := f.svc.ApproveOrder(ctx, order.Code, f.admin.ID.String())
	require.NoError(t, err)

	logs, total, err := f.store.Audits().List(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// Most recent first.
	assert.Equal(t, model.ActionApproveOrder, logs[0].Action)
	assert.Equal(t, f.admin.Email, logs[0].PerformedBy)
	assert.Equal(t, order.Code, logs[0].TargetID)
	assert.Equal(t, model.ActionCreateOrder, logs[1].Action)
	assert.Equal(t, f.buyer.Email, logs[1].PerformedBy)
}

func TestGetOrderNotFound(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	_, err := f.svc.GetOrder(context.Background(), "ORD-20260101-MISSING")
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}

func TestListOrdersByStatus(t *testing.T) {
	f := newEngine(t, service.OrderConfig{})
	ctx := context.Background()

	f.placeOrder(t, f.buyer.ID.String(), model.PaymentOnlineCard,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 1})
	pending := f.placeOrder(t, f.buyer.ID.String(), model.PaymentBankTransfer,
		service.OrderItemRequest{ProductID: f.paracetamol.ID.String(), Quantity: 2})

	orders, total, err := f.svc.ListOrders(ctx, 1, 10, string(model.StatusPaymentPending))
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, pending.Code, orders[0].Code)

	_, _, err = f.svc.ListOrders(ctx, 1, 10, "NOT_A_STATUS")
	assert.Error(t, err)

	mine, total, err := f.svc.ListUserOrders(ctx, f.buyer.ID.String(), 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)
}
