package checkout

import (
	"github.com/mbsaloka/lume-cashier-app/internal/cart"
	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/shopspring/decimal"
)

// Action names an operator action the current state accepts
type Action string

const (
	ActionAddItem             Action = "add_item"
	ActionReview              Action = "review"
	ActionEdit                Action = "edit"
	ActionSelectMethod        Action = "select_method"
	ActionPay                 Action = "pay"
	ActionBack                Action = "back"
	ActionRequestConfirmation Action = "request_confirmation"
	ActionConfirm             Action = "confirm"
	ActionCancelConfirmation  Action = "cancel_confirmation"
	ActionRetry               Action = "retry"
	ActionStartNew            Action = "start_new"
)

// State is a point-in-time copy of the session and its cart
type State struct {
	SessionID     string                    `json:"sessionId"`
	Step          domain.CheckoutStep       `json:"step"`
	Method        domain.PaymentMethod      `json:"method,omitempty"`
	PaymentStatus domain.PaymentStatus      `json:"paymentStatus,omitempty"`
	Amount        decimal.Decimal           `json:"amount"`
	Message       string                    `json:"message,omitempty"`
	Error         string                    `json:"error,omitempty"`
	Lines         []cart.Line               `json:"items"`
	Total         decimal.Decimal           `json:"total"`
	Instructions  *Instructions             `json:"instructions,omitempty"`
	Transaction   *domain.TransactionRecord `json:"transaction,omitempty"`
	Actions       []Action                  `json:"actions"`
}

// Allows reports whether the state accepts the action
func (s State) Allows(a Action) bool {
	for _, allowed := range s.Actions {
		if allowed == a {
			return true
		}
	}
	return false
}

func (m *Machine) state() State {
	s := State{
		SessionID:     m.session.id.String(),
		Step:          m.session.step,
		Method:        m.session.method,
		PaymentStatus: m.session.status,
		Amount:        m.session.amount,
		Message:       m.session.message,
		Error:         m.session.failure,
		Lines:         m.cart.Lines(),
		Total:         m.cart.Total(),
		Actions:       m.actions(),
	}
	if m.session.instructions != nil {
		in := *m.session.instructions
		in.Accounts = append([]TransferAccount(nil), in.Accounts...)
		s.Instructions = &in
	}
	if m.session.record != nil {
		rec := *m.session.record
		rec.Items = append([]domain.TransactionItem(nil), rec.Items...)
		s.Transaction = &rec
	}
	return s
}

func (m *Machine) actions() []Action {
	switch m.session.step {
	case domain.CheckoutStepSelect:
		if m.cart.IsEmpty() {
			return []Action{ActionAddItem}
		}
		return []Action{ActionAddItem, ActionReview}
	case domain.CheckoutStepReview:
		if m.session.method.IsValid() {
			return []Action{ActionEdit, ActionSelectMethod, ActionPay}
		}
		return []Action{ActionEdit, ActionSelectMethod}
	case domain.CheckoutStepPayment:
		switch m.session.status {
		case domain.PaymentStatusWaiting:
			return []Action{ActionSelectMethod, ActionRequestConfirmation, ActionBack}
		case domain.PaymentStatusConfirming:
			return []Action{ActionConfirm, ActionCancelConfirmation}
		case domain.PaymentStatusFailed:
			return []Action{ActionRetry, ActionSelectMethod, ActionBack}
		}
		return []Action{}
	case domain.CheckoutStepComplete:
		return []Action{ActionStartNew}
	}
	return []Action{}
}
