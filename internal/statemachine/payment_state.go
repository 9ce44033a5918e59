package statemachine

import "github.com/example/foodorder/internal/models"

// paymentTransitions mirrors the order table: every payment status may follow any other.
var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusUnpaid: {models.PaymentStatusPaid, models.PaymentStatusFailed},
	models.PaymentStatusFailed: {models.PaymentStatusUnpaid, models.PaymentStatusPaid},
	models.PaymentStatusPaid:   {models.PaymentStatusUnpaid, models.PaymentStatusFailed},
}

// CanTransitionPayment reports whether a payment may move from one status to another.
func CanTransitionPayment(from, to models.PaymentStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ForcesConfirmation reports whether moving a payment to status confirms its order.
func ForcesConfirmation(status models.PaymentStatus) bool {
	return status == models.PaymentStatusPaid
}
