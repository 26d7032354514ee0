package model

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusReceived         OrderStatus = "RECEIVED"
	StatusInvoiceGenerated OrderStatus = "INVOICE_GENERATED"
	StatusPaymentPending   OrderStatus = "PAYMENT_PENDING"
	StatusPaymentReview    OrderStatus = "PAYMENT_REVIEW"
	StatusPaymentConfirmed OrderStatus = "PAYMENT_CONFIRMED"
	StatusOrderApproved    OrderStatus = "ORDER_APPROVED"
	StatusPacked           OrderStatus = "PACKED"
	StatusDispatched       OrderStatus = "DISPATCHED"
	StatusDelivered        OrderStatus = "DELIVERED"
	StatusCancelled        OrderStatus = "CANCELLED"
)

// transitions is the single source of truth for legal status changes.
// Every mutating operation on an order consults this table; there is no
// per-call-site validation anywhere else.
var transitions = map[OrderStatus][]OrderStatus{
	StatusReceived:         {StatusInvoiceGenerated, StatusCancelled},
	StatusInvoiceGenerated: {StatusPaymentPending, StatusPaymentConfirmed, StatusCancelled},
	StatusPaymentPending:   {StatusPaymentReview, StatusOrderApproved, StatusCancelled},
	StatusPaymentReview:    {StatusPaymentConfirmed, StatusPaymentPending, StatusCancelled},
	StatusPaymentConfirmed: {StatusOrderApproved, StatusCancelled},
	StatusOrderApproved:    {StatusPacked, StatusCancelled},
	StatusPacked:           {StatusDispatched},
	StatusDispatched:       {StatusDelivered},
	StatusDelivered:        nil,
	StatusCancelled:        nil,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// NextLogisticsStep returns the single valid fulfillment step after s.
// It returns false when s is not in the logistics phase; skipping steps
// (e.g. ORDER_APPROVED straight to DISPATCHED) is never legal.
func (s OrderStatus) NextLogisticsStep() (OrderStatus, bool) {
	switch s {
	case StatusOrderApproved:
		return StatusPacked, true
	case StatusPacked:
		return StatusDispatched, true
	case StatusDispatched:
		return StatusDelivered, true
	default:
		return "", false
	}
}
