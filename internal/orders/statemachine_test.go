package orders

import (
	"testing"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
)

func TestCanTransitionHappyPath(t *testing.T) {
	steps := []string{
		models.OrderPending,
		models.OrderConfirmed,
		models.OrderPreparing,
		models.OrderReady,
		models.OrderDelivering,
		models.OrderCompleted,
	}
	for i := 0; i < len(steps)-1; i++ {
		if !CanTransition(steps[i], steps[i+1]) {
			t.Fatalf("expected %s -> %s to be allowed", steps[i], steps[i+1])
		}
	}
}

func TestCanTransitionCancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []string{
		models.OrderPending,
		models.OrderConfirmed,
		models.OrderPreparing,
		models.OrderReady,
		models.OrderDelivering,
	} {
		if !CanTransition(from, models.OrderCancelled) {
			t.Fatalf("expected %s -> cancelled to be allowed", from)
		}
	}
}

func TestCanTransitionRejectsSkipsAndBackwardMoves(t *testing.T) {
	tests := []struct{ from, to string }{
		{models.OrderPending, models.OrderPreparing},
		{models.OrderPending, models.OrderCompleted},
		{models.OrderConfirmed, models.OrderReady},
		{models.OrderConfirmed, models.OrderPending},
		{models.OrderReady, models.OrderCompleted},
		{models.OrderDelivering, models.OrderPending},
		{models.OrderPreparing, models.OrderConfirmed},
	}
	for _, tc := range tests {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	all := []string{
		models.OrderPending,
		models.OrderConfirmed,
		models.OrderPreparing,
		models.OrderReady,
		models.OrderDelivering,
		models.OrderCompleted,
		models.OrderCancelled,
	}
	for _, terminal := range []string{models.OrderCompleted, models.OrderCancelled} {
		for _, to := range all {
			if CanTransition(terminal, to) {
				t.Fatalf("expected terminal %s to have no exit, got %s -> %s allowed", terminal, terminal, to)
			}
		}
	}
}

func TestValidateTransitionUnknownTargetStatus(t *testing.T) {
	err := ValidateTransition(models.OrderPending, "shipped")
	if err == nil {
		t.Fatal("expected error for unknown status")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.Validation {
		t.Fatalf("expected Validation error, got %v", err)
	}
}

func TestValidateTransitionInvalidPair(t *testing.T) {
	err := ValidateTransition(models.OrderCompleted, models.OrderDelivering)
	if err == nil {
		t.Fatal("expected error for completed -> delivering")
	}
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.InvalidTransition {
		t.Fatalf("expected InvalidTransition error, got %v", err)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{models.OrderPending, models.OrderCancelled} {
		if !ValidStatus(s) {
			t.Fatalf("expected %s to be a valid status", s)
		}
	}
	if ValidStatus("refunded") {
		t.Fatal("expected refunded to be rejected as an order status")
	}
}
