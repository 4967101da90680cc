package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mbsaloka/lume-cashier-app/internal/cart"
	"github.com/mbsaloka/lume-cashier-app/internal/domain"
	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	msgProcessing = "Processing payment..."
	msgSuccess    = "Payment successful!"
	msgFailed     = "Payment failed. Please try again."
)

// Committer persists a finalized sale. Any error is a failed commit.
type Committer interface {
	CommitTransaction(ctx context.Context, idempotencyKey string, req *domain.TransactionRequest) (*domain.TransactionRecord, error)
}

// CommitObserver is told about every finished commit attempt
type CommitObserver interface {
	CommitFinished(method domain.PaymentMethod, success bool, took time.Duration)
}

type Options struct {
	TransferAccounts []TransferAccount
	Observer         CommitObserver
	Now              func() time.Time
}

type session struct {
	id           uuid.UUID
	step         domain.CheckoutStep
	method       domain.PaymentMethod
	status       domain.PaymentStatus
	amount       decimal.Decimal
	message      string
	failure      string
	instructions *Instructions
	record       *domain.TransactionRecord
}

// Machine drives one checkout session at a time over the cart it owns.
// Cart edits are only accepted in the select step; the cart is cleared only
// when a commit succeeds.
type Machine struct {
	mu        sync.Mutex
	cart      *cart.Cart
	committer Committer
	accounts  []TransferAccount
	observer  CommitObserver
	now       func() time.Time
	session   session
}

func NewMachine(committer Committer, opts Options) *Machine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	m := &Machine{
		cart:      cart.New(),
		committer: committer,
		accounts:  opts.TransferAccounts,
		observer:  opts.Observer,
		now:       now,
	}
	m.session = newSession()
	return m
}

func newSession() session {
	return session{id: uuid.New(), step: domain.CheckoutStepSelect}
}

// Cart gives display layers read access to the live cart
func (m *Machine) Cart() cart.Reader {
	return m.cart.ReadOnly()
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state()
}

// AddItem puts quantity units of product in the cart. Sold-out products are refused.
func (m *Machine) AddItem(product domain.Product, quantity int) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepSelect {
		return m.state(), ErrCartLocked
	}
	if !product.InStock() {
		return m.state(), ErrOutOfStock
	}
	if err := m.cart.AddItem(product, quantity); err != nil {
		return m.state(), err
	}
	return m.state(), nil
}

func (m *Machine) UpdateQuantity(productID string, quantity int) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepSelect {
		return m.state(), ErrCartLocked
	}
	m.cart.UpdateQuantity(productID, quantity)
	return m.state(), nil
}

func (m *Machine) RemoveItem(productID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepSelect {
		return m.state(), ErrCartLocked
	}
	m.cart.RemoveItem(productID)
	return m.state(), nil
}

func (m *Machine) ClearCart() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepSelect {
		return m.state(), ErrCartLocked
	}
	m.cart.Clear()
	return m.state(), nil
}

// ProceedToReview moves select -> review. An empty cart is silently refused.
func (m *Machine) ProceedToReview() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepSelect {
		return m.state(), ErrIllegalTransition
	}
	if m.cart.IsEmpty() {
		return m.state(), nil
	}
	m.moveTo(domain.CheckoutStepReview)
	return m.state(), nil
}

// Edit moves review -> select without touching the cart
func (m *Machine) Edit() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepReview {
		return m.state(), ErrIllegalTransition
	}
	m.moveTo(domain.CheckoutStepSelect)
	return m.state(), nil
}

// SelectPaymentMethod records the method. It can change during review and
// while the payment is waiting for confirmation or has failed.
func (m *Machine) SelectPaymentMethod(method domain.PaymentMethod) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !method.IsValid() {
		return m.state(), ErrInvalidPaymentMethod
	}

	switch {
	case m.session.step == domain.CheckoutStepReview:
		m.session.method = method
	case m.session.step == domain.CheckoutStepPayment &&
		(m.session.status == domain.PaymentStatusWaiting || m.session.status == domain.PaymentStatusFailed):
		m.session.method = method
		m.session.instructions = newInstructions(method, m.session.amount, m.accounts, m.now())
		if m.session.status == domain.PaymentStatusWaiting {
			m.session.message = m.session.instructions.Prompt
		}
	default:
		return m.state(), ErrMethodChangeNotAllowed
	}
	return m.state(), nil
}

// ProceedToPayment moves review -> payment carrying the method and the cart
// total. Without a method or with an empty cart it is silently refused.
func (m *Machine) ProceedToPayment() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepReview {
		return m.state(), ErrIllegalTransition
	}
	if !m.session.method.IsValid() || m.cart.IsEmpty() {
		return m.state(), nil
	}

	m.session.amount = m.cart.Total()
	m.session.instructions = newInstructions(m.session.method, m.session.amount, m.accounts, m.now())
	m.session.failure = ""
	m.moveTo(domain.CheckoutStepPayment)
	m.setStatus(domain.PaymentStatusWaiting, m.session.instructions.Prompt)
	return m.state(), nil
}

// Back moves payment -> review. It is refused while the confirmation dialog
// is open or a commit is in flight.
func (m *Machine) Back() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepPayment {
		return m.state(), ErrIllegalTransition
	}
	switch m.session.status {
	case domain.PaymentStatusProcessing:
		return m.state(), ErrCommitInFlight
	case domain.PaymentStatusConfirming:
		return m.state(), ErrConfirmationOpen
	}

	m.moveTo(domain.CheckoutStepReview)
	m.session.status = ""
	m.session.message = ""
	m.session.failure = ""
	m.session.instructions = nil
	m.session.amount = decimal.Zero
	return m.state(), nil
}

// RequestConfirmation opens the confirmation gate: waiting -> confirming
func (m *Machine) RequestConfirmation() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.paymentTransition(domain.PaymentStatusConfirming); err != nil {
		return m.state(), err
	}
	m.setStatus(domain.PaymentStatusConfirming, confirmationMessage(m.session.method, m.session.amount))
	return m.state(), nil
}

// CancelConfirmation closes the gate without committing: confirming -> waiting
func (m *Machine) CancelConfirmation() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step == domain.CheckoutStepPayment && m.session.status != domain.PaymentStatusConfirming {
		return m.state(), ErrIllegalTransition
	}
	if err := m.paymentTransition(domain.PaymentStatusWaiting); err != nil {
		return m.state(), err
	}
	m.setStatus(domain.PaymentStatusWaiting, m.session.instructions.Prompt)
	return m.state(), nil
}

// Confirm is the operator's acknowledgment in the confirmation gate. The gate
// closes, the sale is committed once, and the session moves to complete (cart
// cleared) or to the failed sub-state (cart intact). A rejected commit is not
// an error: it is reported through the returned state.
func (m *Machine) Confirm(ctx context.Context) (State, error) {
	m.mu.Lock()
	if m.session.step != domain.CheckoutStepPayment {
		defer m.mu.Unlock()
		return m.state(), ErrIllegalTransition
	}
	switch m.session.status {
	case domain.PaymentStatusProcessing:
		defer m.mu.Unlock()
		return m.state(), ErrCommitInFlight
	case domain.PaymentStatusConfirming:
	default:
		defer m.mu.Unlock()
		return m.state(), ErrConfirmationRequired
	}

	req := &domain.TransactionRequest{
		Items:  m.cart.Snapshot(),
		Total:  m.cart.Total(),
		Method: m.session.method,
	}
	key := idempotencyKey(m.session.id, req)
	sessionID := m.session.id
	m.session.failure = ""
	m.setStatus(domain.PaymentStatusProcessing, msgProcessing)
	m.mu.Unlock()

	log := logger.WithContext(ctx).With().
		Str("session_id", sessionID.String()).
		Str("method", req.Method.String()).
		Str("total", req.Total.String()).
		Logger()

	// an in-flight commit is awaited to completion even if the caller goes away
	start := time.Now()
	record, err := m.committer.CommitTransaction(context.WithoutCancel(ctx), key, req)
	took := time.Since(start)
	if err == nil && record == nil {
		err = errors.New("backend returned no transaction")
	}
	if m.observer != nil {
		m.observer.CommitFinished(req.Method, err == nil, took)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("transaction commit failed")
		m.session.failure = err.Error()
		m.setStatus(domain.PaymentStatusFailed, msgFailed)
		return m.state(), nil
	}

	log.Info().Str("transaction_id", record.ID).Msg("transaction committed")
	m.cart.Clear()
	m.session.record = record
	m.setStatus(domain.PaymentStatusSuccess, msgSuccess)
	m.moveTo(domain.CheckoutStepComplete)
	return m.state(), nil
}

// Retry returns a failed payment to waiting with the cart and method intact
func (m *Machine) Retry() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step == domain.CheckoutStepPayment && m.session.status != domain.PaymentStatusFailed {
		return m.state(), ErrIllegalTransition
	}
	if err := m.paymentTransition(domain.PaymentStatusWaiting); err != nil {
		return m.state(), err
	}
	m.session.failure = ""
	m.setStatus(domain.PaymentStatusWaiting, m.session.instructions.Prompt)
	return m.state(), nil
}

// StartNew replaces a completed session with a fresh one in select
func (m *Machine) StartNew() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.step != domain.CheckoutStepComplete {
		return m.state(), ErrIllegalTransition
	}
	m.cart.Clear()
	m.session = newSession()
	logger.L().Debug().Str("session_id", m.session.id.String()).Msg("checkout session started")
	return m.state(), nil
}

func (m *Machine) moveTo(next domain.CheckoutStep) {
	logger.L().Debug().
		Str("session_id", m.session.id.String()).
		Str("from", m.session.step.String()).
		Str("to", next.String()).
		Msg("checkout step changed")
	m.session.step = next
}

func (m *Machine) paymentTransition(next domain.PaymentStatus) error {
	if m.session.step != domain.CheckoutStepPayment {
		return ErrIllegalTransition
	}
	if m.session.status.IsInFlight() {
		return ErrCommitInFlight
	}
	if !m.session.status.CanTransitionTo(next) {
		return ErrIllegalTransition
	}
	return nil
}

func (m *Machine) setStatus(status domain.PaymentStatus, message string) {
	m.session.status = status
	m.session.message = message
}

// idempotencyKey depends on the session and the sold lines only. The method
// can still change after a failed commit and must not yield a second key for
// a sale that may already have landed.
func idempotencyKey(sessionID uuid.UUID, req *domain.TransactionRequest) string {
	payload, err := json.Marshal(struct {
		Items []domain.TransactionItem `json:"items"`
		Total decimal.Decimal          `json:"total"`
	}{req.Items, req.Total})
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(sessionID, payload).String()
}
