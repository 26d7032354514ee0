package memory

import (
	"context"
	"sync"
	"testing"

	"backend/internal/model"

	"gorm.io/gorm"
)

func TestTrySettleNeverOversells(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	product := &model.Product{SKU: "PCM-500", Name: "Paracetamol 500mg", Stock: 100}
	if err := store.Products().Create(ctx, product); err != nil {
		t.Fatal(err)
	}

	// 50 workers each try to settle 3 units; only 33 can succeed.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Products().TrySettle(ctx, product.ID, 3)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 33 {
		t.Errorf("expected 33 settlements, got %d", succeeded)
	}
	p, err := store.Products().FindByID(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 1 {
		t.Errorf("expected 1 unit left, got %d", p.Stock)
	}
	if p.Stock < 0 {
		t.Error("stock went negative")
	}
}

func TestSettleAndRestockRoundTrip(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	product := &model.Product{SKU: "VIT-D3", Name: "Vitamin D3 1000IU", Stock: 10}
	if err := store.Products().Create(ctx, product); err != nil {
		t.Fatal(err)
	}

	ok, err := store.Products().TrySettle(ctx, product.ID, 10)
	if err != nil || !ok {
		t.Fatalf("settle failed: ok=%v err=%v", ok, err)
	}

	ok, err = store.Products().TrySettle(ctx, product.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("settle on empty stock should report false")
	}

	if err := store.Products().Restock(ctx, product.ID, 10); err != nil {
		t.Fatal(err)
	}
	p, err := store.Products().FindByID(ctx, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Stock != 10 {
		t.Errorf("expected stock restored to 10, got %d", p.Stock)
	}
}

func TestTimelineSequenceIsMonotonic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	order := &model.Order{Code: "ORD-20260101-TEST1", Status: model.StatusReceived}
	if err := store.Orders().Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	for _, s := range []model.OrderStatus{model.StatusReceived, model.StatusInvoiceGenerated, model.StatusPaymentPending} {
		ev := &model.OrderStatusEvent{OrderID: order.ID, Status: s}
		if err := store.Orders().AppendEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.Orders().FindByCode(ctx, order.Code)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Timeline) != 3 {
		t.Fatalf("expected 3 timeline entries, got %d", len(got.Timeline))
	}
	for i := 1; i < len(got.Timeline); i++ {
		if got.Timeline[i].Seq <= got.Timeline[i-1].Seq {
			t.Errorf("timeline seq not increasing at %d: %d then %d", i, got.Timeline[i-1].Seq, got.Timeline[i].Seq)
		}
	}
}

func TestNotFoundMapsToGormSentinel(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.Orders().FindByCode(ctx, "ORD-MISSING"); err != gorm.ErrRecordNotFound {
		t.Errorf("expected gorm.ErrRecordNotFound, got %v", err)
	}
	if _, err := store.Users().GetByEmail(ctx, "nobody@example.com"); err != gorm.ErrRecordNotFound {
		t.Errorf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}
