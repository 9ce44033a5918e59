package statemachine

import (
	"fmt"
	"strings"

	"github.com/example/foodorder/internal/models"
)

// Actors that may move an order between statuses.
const (
	ActorAdmin  = "admin"
	ActorSystem = "system"
)

// Transition defines a valid state change and who can perform it.
type Transition struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

// validTransitions is the order status table. Admins may move an order between any two
// statuses, including Confirmed back to Pending. The system only confirms orders when a
// payment is marked Paid.
var validTransitions = func() []Transition {
	var out []Transition
	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			if from != to {
				out = append(out, Transition{From: from, To: to, Actor: ActorAdmin})
			}
		}
		if from != models.OrderStatusConfirmed {
			out = append(out, Transition{From: from, To: models.OrderStatusConfirmed, Actor: ActorSystem})
		}
	}
	return out
}()

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// TransitionError reports a rejected status change.
type TransitionError struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s is not allowed for %s; valid next statuses: %s",
		e.From, e.To, e.Actor, describeValidFrom(e.From))
}

// CanTransition checks whether actor can move an order from one status to another.
// Re-applying the current status is always allowed.
func CanTransition(from, to models.OrderStatus, actor string) error {
	if from == to && to.Valid() {
		return nil
	}
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return &TransitionError{From: from, To: to, Actor: actor}
}

// ValidTransitionsFrom returns all statuses reachable from status by any actor.
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
