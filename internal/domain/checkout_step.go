package domain

// CheckoutStep is the top-level stage of the checkout funnel
type CheckoutStep string

const (
	CheckoutStepSelect   CheckoutStep = "select"
	CheckoutStepReview   CheckoutStep = "review"
	CheckoutStepPayment  CheckoutStep = "payment"
	CheckoutStepComplete CheckoutStep = "complete"
)

var stepTransitions = map[CheckoutStep][]CheckoutStep{
	CheckoutStepSelect:   {CheckoutStepReview},
	CheckoutStepReview:   {CheckoutStepSelect, CheckoutStepPayment},
	CheckoutStepPayment:  {CheckoutStepReview, CheckoutStepComplete},
	CheckoutStepComplete: {CheckoutStepSelect},
}

// CanTransitionTo reports whether the funnel allows moving from s to next.
// Guards that depend on session data (cart contents, chosen method, commit
// outcome) are checked by the state machine, not here.
func (s CheckoutStep) CanTransitionTo(next CheckoutStep) bool {
	for _, allowed := range stepTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}

// PaymentStatus is the sub-state inside the payment step
type PaymentStatus string

const (
	PaymentStatusWaiting    PaymentStatus = "waiting"
	PaymentStatusConfirming PaymentStatus = "confirming"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccess    PaymentStatus = "success"
	PaymentStatusFailed     PaymentStatus = "failed"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusWaiting:    {PaymentStatusConfirming},
	PaymentStatusConfirming: {PaymentStatusWaiting, PaymentStatusProcessing},
	PaymentStatusProcessing: {PaymentStatusSuccess, PaymentStatusFailed},
	PaymentStatusFailed:     {PaymentStatusWaiting},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsInFlight is true while a commit has been issued and not yet answered
func (s PaymentStatus) IsInFlight() bool {
	return s == PaymentStatusProcessing
}

func (s PaymentStatus) String() string {
	return string(s)
}
