package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{InvalidTransition, http.StatusBadRequest},
		{AlreadyAssigned, http.StatusBadRequest},
		{AlreadyProcessed, http.StatusBadRequest},
		{UpstreamFailure, http.StatusBadRequest},
		{Unexpected, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
			t.Fatalf("kind %d: expected status %d, got %d", tc.kind, tc.want, got)
		}
	}
}

func TestNewFormatsMessage(t *testing.T) {
	err := New(InvalidTransition, "invalid status transition from %s to %s", "pending", "completed")
	if err.Message != "invalid status transition from pending to completed" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.Error() != err.Message {
		t.Fatalf("expected Error() to equal Message without a cause, got %s", err.Error())
	}
}

func TestWrapKeepsCauseOutOfMessage(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, "could not load order")
	if err.Kind != Unexpected {
		t.Fatalf("expected Unexpected kind, got %d", err.Kind)
	}
	if err.Message != "could not load order" {
		t.Fatalf("expected the caller-safe message only, got %s", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestAsThroughWrappedChain(t *testing.T) {
	inner := New(NotFound, "order not found")
	wrapped := fmt.Errorf("handler: %w", inner)

	appErr, ok := As(wrapped)
	if !ok || appErr.Kind != NotFound {
		t.Fatalf("expected NotFound through the chain, got %v %v", appErr, ok)
	}

	if _, ok := As(errors.New("plain")); ok {
		t.Fatal("expected plain errors not to match")
	}
}

func TestIsKind(t *testing.T) {
	err := New(AlreadyAssigned, "delivery already assigned to another driver")
	if !IsKind(err, AlreadyAssigned) {
		t.Fatal("expected IsKind to match")
	}
	if IsKind(err, Forbidden) {
		t.Fatal("expected IsKind to reject a different kind")
	}
	if IsKind(nil, Forbidden) {
		t.Fatal("expected IsKind(nil) to be false")
	}
}
