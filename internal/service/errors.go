package service

import "errors"

// Engine error taxonomy. All of these are recoverable at the caller: the
// handler layer maps them to HTTP statuses and system state is left
// untouched on every failure path.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")

	// ErrInvalidState: the operation is not legal from the order's
	// current status (including replays of an already-applied call).
	ErrInvalidState = errors.New("operation not allowed in current order status")

	// ErrInvalidTransition: a logistics step was requested out of
	// sequence.
	ErrInvalidTransition = errors.New("logistics status requested out of sequence")

	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrBelowMinOrderQuantity = errors.New("quantity below minimum order quantity")
	ErrPaymentNotSettled     = errors.New("payment must be confirmed before approval")

	ErrAccountInactive    = errors.New("account pending verification")
	ErrNotOrderOwner      = errors.New("order belongs to another account")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
