package model

import "testing"

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"received to invoice", StatusReceived, StatusInvoiceGenerated, true},
		{"received to approved skips payment", StatusReceived, StatusOrderApproved, false},
		{"invoice to pending", StatusInvoiceGenerated, StatusPaymentPending, true},
		{"invoice to confirmed (card)", StatusInvoiceGenerated, StatusPaymentConfirmed, true},
		{"pending to review", StatusPaymentPending, StatusPaymentReview, true},
		{"pending direct approval (pay on delivery)", StatusPaymentPending, StatusOrderApproved, true},
		{"review approved", StatusPaymentReview, StatusPaymentConfirmed, true},
		{"review rejected back to pending", StatusPaymentReview, StatusPaymentPending, true},
		{"confirmed to approved", StatusPaymentConfirmed, StatusOrderApproved, true},
		{"approved to packed", StatusOrderApproved, StatusPacked, true},
		{"approved skips to dispatched", StatusOrderApproved, StatusDispatched, false},
		{"packed to dispatched", StatusPacked, StatusDispatched, true},
		{"packed cannot cancel", StatusPacked, StatusCancelled, false},
		{"dispatched to delivered", StatusDispatched, StatusDelivered, true},
		{"delivered is terminal", StatusDelivered, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusReceived, false},
		{"backwards from packed", StatusPacked, StatusOrderApproved, false},
		{"unknown status", OrderStatus("SHIPPED"), StatusDelivered, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []OrderStatus{StatusDelivered, StatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{StatusReceived, StatusPaymentPending, StatusPacked} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if OrderStatus("BOGUS").IsTerminal() {
		t.Error("unknown status must not report terminal")
	}
}

func TestNextLogisticsStep(t *testing.T) {
	tests := []struct {
		from   OrderStatus
		want   OrderStatus
		wantOK bool
	}{
		{StatusOrderApproved, StatusPacked, true},
		{StatusPacked, StatusDispatched, true},
		{StatusDispatched, StatusDelivered, true},
		{StatusDelivered, "", false},
		{StatusPaymentPending, "", false},
		{StatusCancelled, "", false},
	}

	for _, tt := range tests {
		got, ok := tt.from.NextLogisticsStep()
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("NextLogisticsStep(%s) = (%s, %v), want (%s, %v)", tt.from, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestValidPaymentMethod(t *testing.T) {
	for _, m := range []string{PaymentOnlineCard, PaymentBankTransfer, PaymentOnDelivery} {
		if !ValidPaymentMethod(m) {
			t.Errorf("%s should be a valid payment method", m)
		}
	}
	if ValidPaymentMethod("CHEQUE") {
		t.Error("CHEQUE should not be a valid payment method")
	}
}
