package statemachine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/foodorder/internal/models"
)

func TestAdminMayMoveBetweenAnyStatuses(t *testing.T) {
	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			assert.NoError(t, CanTransition(from, to, ActorAdmin), "%s -> %s", from, to)
		}
	}
}

func TestConfirmedBackToPendingIsAllowed(t *testing.T) {
	require.NoError(t, CanTransition(models.OrderStatusConfirmed, models.OrderStatusPending, ActorAdmin))
}

func TestSystemOnlyConfirms(t *testing.T) {
	assert.NoError(t, CanTransition(models.OrderStatusDelivered, models.OrderStatusConfirmed, ActorSystem))

	err := CanTransition(models.OrderStatusPending, models.OrderStatusDelivered, ActorSystem)
	var terr *TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, ActorSystem, terr.Actor)
	assert.Contains(t, err.Error(), "Pending -> Delivered")
}

func TestUnknownStatusRejected(t *testing.T) {
	assert.Error(t, CanTransition(models.OrderStatusPending, "Cooking", ActorAdmin))
	assert.Error(t, CanTransition("Cooking", "Cooking", ActorAdmin))
}

func TestValidTransitionsFrom(t *testing.T) {
	nexts := ValidTransitionsFrom(models.OrderStatusPending)
	assert.ElementsMatch(t, []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusOutForDelivery,
		models.OrderStatusDelivered,
	}, nexts)
	assert.Empty(t, ValidTransitionsFrom("Cooking"))
}

func TestPaymentTransitions(t *testing.T) {
	assert.True(t, CanTransitionPayment(models.PaymentStatusUnpaid, models.PaymentStatusPaid))
	assert.True(t, CanTransitionPayment(models.PaymentStatusPaid, models.PaymentStatusPaid))
	assert.True(t, CanTransitionPayment(models.PaymentStatusFailed, models.PaymentStatusUnpaid))
	assert.False(t, CanTransitionPayment(models.PaymentStatusUnpaid, "Refunded"))

	assert.True(t, ForcesConfirmation(models.PaymentStatusPaid))
	assert.False(t, ForcesConfirmation(models.PaymentStatusFailed))
}
