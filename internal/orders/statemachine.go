package orders

import (
	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
)

// statusFlow is the only legal transition table. Completed and cancelled are
// terminal.
var statusFlow = map[string][]string{
	models.OrderPending:    {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed:  {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing:  {models.OrderReady, models.OrderCancelled},
	models.OrderReady:      {models.OrderDelivering, models.OrderCancelled},
	models.OrderDelivering: {models.OrderCompleted, models.OrderCancelled},
	models.OrderCompleted:  {},
	models.OrderCancelled:  {},
}

// ValidStatus reports whether s is one of the seven order statuses.
func ValidStatus(s string) bool {
	_, ok := statusFlow[s]
	return ok
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(from, to string) bool {
	for _, next := range statusFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransition error naming the attempted
// pair when the move is not in the table.
func ValidateTransition(from, to string) error {
	if !ValidStatus(to) {
		return apperr.New(apperr.Validation, "invalid status value: %s", to)
	}
	if !CanTransition(from, to) {
		return apperr.New(apperr.InvalidTransition, "invalid status transition from %s to %s", from, to)
	}
	return nil
}
