package statemachine

import (
	"strings"

	"food-order-service/apperrors"
	"food-order-service/models"
)

// Transition defines a legal forward move of an order's status.
type Transition struct {
	From        models.OrderStatus `json:"from"`
	To          models.OrderStatus `json:"to"`
	Description string             `json:"description"`
}

// validTransitions is the authoritative state machine definition.
var validTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusPreparing, Description: "kitchen started the order"},
	// Small orders can be handed over without a separate preparing step.
	{From: models.StatusPending, To: models.StatusDelivered, Description: "order delivered"},
	{From: models.StatusPreparing, To: models.StatusDelivered, Description: "order delivered"},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To}] = true
	}
	return m
}()

// TransitionError reports a move the table does not allow.
type TransitionError struct {
	From    models.OrderStatus
	To      models.OrderStatus
	Allowed []models.OrderStatus
}

func (e *TransitionError) Error() string {
	return "invalid transition: " + string(e.From) + " -> " + string(e.To) +
		". Valid transitions from " + string(e.From) + " are: " + describe(e.Allowed)
}

func (e *TransitionError) Unwrap() error { return apperrors.ErrInvalidTransition }

// ValidTransitionsFrom returns all valid next states from a given state.
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks whether an order may move from one state to another.
// Staying in the same state is always allowed so repeated updates are harmless.
func CanTransition(from, to models.OrderStatus) error {
	if !to.Valid() {
		return apperrors.Validation("unknown order status %q", to)
	}
	if from == to || transitionMap[transitionKey{From: from, To: to}] {
		return nil
	}
	return &TransitionError{From: from, To: to, Allowed: ValidTransitionsFrom(from)}
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

func describe(nexts []models.OrderStatus) string {
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation.
func GetAllTransitions() []Transition {
	return validTransitions
}
