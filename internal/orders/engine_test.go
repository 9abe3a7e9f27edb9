package orders

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
	"lesmarket/internal/notify"
)

func testEngine(cfg Config) *Engine {
	return NewEngine(nil, notify.Nop{}, cfg)
}

func TestDeliveryFeeSchedule(t *testing.T) {
	e := testEngine(Config{})
	if got := e.DeliveryFee(false); got != 15.0 {
		t.Fatalf("expected standard fee 15, got %v", got)
	}
	if got := e.DeliveryFee(true); got != 25.0 {
		t.Fatalf("expected urgent fee 25, got %v", got)
	}
}

func TestDeliveryFeeOverride(t *testing.T) {
	e := testEngine(Config{StandardFee: 12, UrgentFee: 20})
	if got := e.DeliveryFee(false); got != 12 {
		t.Fatalf("expected configured standard fee 12, got %v", got)
	}
	if got := e.DeliveryFee(true); got != 20 {
		t.Fatalf("expected configured urgent fee 20, got %v", got)
	}
}

func TestCreateRequiresPhoneForMobileMoney(t *testing.T) {
	e := testEngine(Config{})
	_, err := e.Create(context.Background(), primitive.NewObjectID(), CreateOrderRequest{
		Items:   []CreateItemRequest{{ProductID: primitive.NewObjectID().Hex(), Quantity: 1}},
		Payment: PaymentSpecRequest{Method: models.PaymentMethodMpesa},
	})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.Validation {
		t.Fatalf("expected Validation error for missing phone, got %v", err)
	}
}

func testOrder(passenger, vendor primitive.ObjectID, status string) *models.Order {
	return &models.Order{
		ID:          primitive.NewObjectID(),
		PassengerID: passenger,
		VendorID:    vendor,
		Status:      status,
	}
}

func TestAuthorizeTransitionAdminAlwaysAllowed(t *testing.T) {
	admin := Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	order := testOrder(primitive.NewObjectID(), primitive.NewObjectID(), models.OrderDelivering)
	if err := authorizeTransition(admin, order, models.OrderCompleted); err != nil {
		t.Fatalf("expected admin to be authorized, got %v", err)
	}
}

func TestAuthorizeTransitionVendorOwnership(t *testing.T) {
	vendorID := primitive.NewObjectID()
	order := testOrder(primitive.NewObjectID(), vendorID, models.OrderPending)

	own := Actor{ID: vendorID, Role: models.RoleVendor}
	if err := authorizeTransition(own, order, models.OrderConfirmed); err != nil {
		t.Fatalf("expected owning vendor to be authorized, got %v", err)
	}

	other := Actor{ID: primitive.NewObjectID(), Role: models.RoleVendor}
	err := authorizeTransition(other, order, models.OrderConfirmed)
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.Forbidden {
		t.Fatalf("expected Forbidden for foreign vendor, got %v", err)
	}
}

func TestAuthorizeTransitionDriverMustBeAssigned(t *testing.T) {
	driverID := primitive.NewObjectID()
	order := testOrder(primitive.NewObjectID(), primitive.NewObjectID(), models.OrderDelivering)

	unassigned := Actor{ID: driverID, Role: models.RoleTaxiDriver}
	err := authorizeTransition(unassigned, order, models.OrderCompleted)
	if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.Forbidden {
		t.Fatalf("expected Forbidden for unassigned driver, got %v", err)
	}

	order.TaxiDriverID = &driverID
	if err := authorizeTransition(unassigned, order, models.OrderCompleted); err != nil {
		t.Fatalf("expected assigned driver to be authorized, got %v", err)
	}
}

func TestAuthorizeTransitionPassengerCancelOnly(t *testing.T) {
	passengerID := primitive.NewObjectID()
	passenger := Actor{ID: passengerID, Role: models.RolePassenger}

	order := testOrder(passengerID, primitive.NewObjectID(), models.OrderPending)
	if err := authorizeTransition(passenger, order, models.OrderCancelled); err != nil {
		t.Fatalf("expected passenger to cancel a pending order, got %v", err)
	}

	order.Status = models.OrderConfirmed
	if err := authorizeTransition(passenger, order, models.OrderCancelled); err != nil {
		t.Fatalf("expected passenger to cancel a confirmed order, got %v", err)
	}

	err := authorizeTransition(passenger, order, models.OrderCompleted)
	if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.Forbidden {
		t.Fatalf("expected Forbidden for passenger non-cancel target, got %v", err)
	}

	order.Status = models.OrderPreparing
	err = authorizeTransition(passenger, order, models.OrderCancelled)
	if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.InvalidTransition {
		t.Fatalf("expected InvalidTransition for late cancel, got %v", err)
	}
}

func TestAuthorizeTransitionForeignPassenger(t *testing.T) {
	order := testOrder(primitive.NewObjectID(), primitive.NewObjectID(), models.OrderPending)
	stranger := Actor{ID: primitive.NewObjectID(), Role: models.RolePassenger}
	err := authorizeTransition(stranger, order, models.OrderCancelled)
	if appErr, ok := apperr.As(err); !ok || appErr.Kind != apperr.Forbidden {
		t.Fatalf("expected Forbidden for foreign passenger, got %v", err)
	}
}

func TestOrderTerminalAndAssignmentHelpers(t *testing.T) {
	driverID := primitive.NewObjectID()
	order := testOrder(primitive.NewObjectID(), primitive.NewObjectID(), models.OrderCompleted)
	if !order.IsTerminal() {
		t.Fatal("expected completed order to be terminal")
	}
	if order.AssignedTo(driverID) {
		t.Fatal("expected no assignment on fresh order")
	}
	order.TaxiDriverID = &driverID
	if !order.AssignedTo(driverID) {
		t.Fatal("expected assignment to match driver")
	}
	if order.AssignedTo(primitive.NewObjectID()) {
		t.Fatal("expected assignment not to match another driver")
	}
}
