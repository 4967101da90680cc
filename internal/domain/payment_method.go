package domain

type PaymentMethod string

const (
	PaymentMethodQRIS     PaymentMethod = "qris"
	PaymentMethodCash     PaymentMethod = "cash"
	PaymentMethodTransfer PaymentMethod = "transfer"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodQRIS, PaymentMethodCash, PaymentMethodTransfer:
		return true
	default:
		return false
	}
}

func (m PaymentMethod) String() string {
	return string(m)
}
