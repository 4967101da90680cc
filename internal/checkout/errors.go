package checkout

import "errors"

var (
	ErrIllegalTransition      = errors.New("illegal transition of checkout step")
	ErrCartLocked             = errors.New("cart can only be changed while selecting products")
	ErrOutOfStock             = errors.New("product is out of stock")
	ErrInvalidPaymentMethod   = errors.New("unknown payment method")
	ErrCommitInFlight         = errors.New("payment confirmation is in progress")
	ErrConfirmationOpen       = errors.New("payment confirmation dialog is open")
	ErrConfirmationRequired   = errors.New("payment must be confirmed before it is committed")
	ErrMethodChangeNotAllowed = errors.New("payment method can no longer be changed")
)
