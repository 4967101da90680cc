package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/shopspring/decimal"
)

// TransferAccount is a bank account the customer can transfer to
type TransferAccount struct {
	Name   string `json:"name" mapstructure:"name"`
	Bank   string `json:"bank" mapstructure:"bank"`
	Number string `json:"number" mapstructure:"number"`
}

// Instructions is what the operator shows the customer while the payment is
// waiting. It never influences the state machine.
type Instructions struct {
	Method    domain.PaymentMethod `json:"method"`
	Prompt    string               `json:"prompt"`
	QRPayload string               `json:"qrPayload,omitempty"`
	Accounts  []TransferAccount    `json:"accounts,omitempty"`
}

func newInstructions(method domain.PaymentMethod, amount decimal.Decimal, accounts []TransferAccount, now time.Time) *Instructions {
	in := &Instructions{Method: method, Prompt: waitingMessage(method)}
	switch method {
	case domain.PaymentMethodQRIS:
		in.QRPayload = fmt.Sprintf("QRIS-%d-%s", now.UnixMilli(), amount.StringFixed(2))
	case domain.PaymentMethodTransfer:
		in.Accounts = append([]TransferAccount(nil), accounts...)
	case domain.PaymentMethodCash:
		in.Prompt = fmt.Sprintf("Collect Rp%s in cash from the customer", amount.String())
	}
	return in
}

func waitingMessage(method domain.PaymentMethod) string {
	switch method {
	case domain.PaymentMethodQRIS:
		return "Scan the QR code to pay"
	case domain.PaymentMethodTransfer:
		return "Transfer the total to one of the accounts below"
	case domain.PaymentMethodCash:
		return "Collect cash from the customer"
	default:
		return ""
	}
}

func confirmationMessage(method domain.PaymentMethod, amount decimal.Decimal) string {
	return fmt.Sprintf("Make sure the customer has completed the payment of Rp%s via %s?",
		amount.String(), strings.ToUpper(method.String()))
}
