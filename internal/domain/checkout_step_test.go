package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutStep_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to CheckoutStep
		want     bool
	}{
		{CheckoutStepSelect, CheckoutStepReview, true},
		{CheckoutStepSelect, CheckoutStepPayment, false},
		{CheckoutStepReview, CheckoutStepSelect, true},
		{CheckoutStepReview, CheckoutStepPayment, true},
		{CheckoutStepPayment, CheckoutStepReview, true},
		{CheckoutStepPayment, CheckoutStepComplete, true},
		{CheckoutStepPayment, CheckoutStepSelect, false},
		{CheckoutStepComplete, CheckoutStepSelect, true},
		{CheckoutStepComplete, CheckoutStepPayment, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaymentStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, PaymentStatusWaiting.CanTransitionTo(PaymentStatusConfirming))
	assert.True(t, PaymentStatusConfirming.CanTransitionTo(PaymentStatusProcessing))
	assert.True(t, PaymentStatusFailed.CanTransitionTo(PaymentStatusWaiting))
	assert.False(t, PaymentStatusWaiting.CanTransitionTo(PaymentStatusProcessing))
	assert.False(t, PaymentStatusProcessing.CanTransitionTo(PaymentStatusWaiting))
	assert.False(t, PaymentStatusSuccess.CanTransitionTo(PaymentStatusWaiting))
	assert.True(t, PaymentStatusProcessing.IsInFlight())
}

func TestPaymentMethod_IsValid(t *testing.T) {
	assert.True(t, PaymentMethodQRIS.IsValid())
	assert.True(t, PaymentMethodCash.IsValid())
	assert.True(t, PaymentMethodTransfer.IsValid())
	assert.False(t, PaymentMethod("card").IsValid())
	assert.False(t, PaymentMethod("").IsValid())
}

func TestItemsTotal(t *testing.T) {
	items := []TransactionItem{
		{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10000")},
		{ProductID: "p2", Quantity: 3, Price: decimal.RequireFromString("0.10")},
	}
	assert.True(t, decimal.RequireFromString("20000.30").Equal(ItemsTotal(items)))
	assert.Equal(t, 5, ItemsCount(items))
}
