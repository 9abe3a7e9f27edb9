package payments

import (
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
)

func TestSettlementSplit(t *testing.T) {
	commission, driverAmount := settlementSplit(15)
	if commission != 1.5 {
		t.Fatalf("expected commission 1.5 on fee 15, got %v", commission)
	}
	if driverAmount != 13.5 {
		t.Fatalf("expected driver amount 13.5 on fee 15, got %v", driverAmount)
	}
}

// The earnings record already exists by confirmation time: assignment creates
// it with the full fee as driverAmount. The settlement update must therefore
// carry the split through $set so it lands on that record, not $setOnInsert.
func TestSettlementEarningsUpdateSetsSplitOnExistingRecord(t *testing.T) {
	driverID := primitive.NewObjectID()
	order := &models.Order{
		ID:           primitive.NewObjectID(),
		TaxiDriverID: &driverID,
		DeliveryFee:  15,
	}
	now := time.Now()

	update := settlementEarningsUpdate(order, now)

	set, ok := update["$set"].(bson.M)
	if !ok {
		t.Fatal("expected a $set clause")
	}
	if set["commission"] != 1.5 {
		t.Fatalf("expected $set commission 1.5, got %v", set["commission"])
	}
	if set["driverAmount"] != 13.5 {
		t.Fatalf("expected $set driverAmount 13.5, got %v", set["driverAmount"])
	}
	if set["status"] != models.EarningPending {
		t.Fatalf("expected $set status %s, got %v", models.EarningPending, set["status"])
	}

	onInsert, ok := update["$setOnInsert"].(bson.M)
	if !ok {
		t.Fatal("expected a $setOnInsert clause")
	}
	for _, field := range []string{"commission", "driverAmount", "status"} {
		if _, present := onInsert[field]; present {
			t.Fatalf("%s must not be insert-only, or an existing record never settles", field)
		}
	}
	if onInsert["driverId"] != driverID {
		t.Fatalf("expected identity driverId %s, got %v", driverID.Hex(), onInsert["driverId"])
	}
	if onInsert["orderId"] != order.ID {
		t.Fatalf("expected identity orderId %s, got %v", order.ID.Hex(), onInsert["orderId"])
	}
	if onInsert["deliveryFee"] != 15.0 {
		t.Fatalf("expected identity deliveryFee 15, got %v", onInsert["deliveryFee"])
	}
}

func TestConfirmReferencePrefersTransactionID(t *testing.T) {
	if got := confirmReference("MP_ABC123", "MP_OLD456"); got != "MP_ABC123" {
		t.Fatalf("expected reported transaction id to win, got %q", got)
	}
}

func TestConfirmReferenceKeepsExistingWhenNoneReported(t *testing.T) {
	if got := confirmReference("", "MP_OLD456"); got != "MP_OLD456" {
		t.Fatalf("expected existing reference to be kept, got %q", got)
	}
}

func TestConfirmReferenceGeneratesManualMarkerOnlyWhenBothEmpty(t *testing.T) {
	got := confirmReference("", "")
	if !strings.HasPrefix(got, "MANUAL_") {
		t.Fatalf("expected MANUAL_ marker, got %q", got)
	}
}

func TestClassifyLedgerInsertErr(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	appErr, ok := apperr.As(classifyLedgerInsertErr(dup))
	if !ok {
		t.Fatal("expected a classified error")
	}
	if appErr.Kind != apperr.AlreadyProcessed {
		t.Fatalf("expected duplicate key to map to AlreadyProcessed, got %v", appErr.Kind)
	}

	plain := errors.New("network down")
	appErr, ok = apperr.As(classifyLedgerInsertErr(plain))
	if !ok {
		t.Fatal("expected a classified error")
	}
	if appErr.Kind != apperr.Unexpected {
		t.Fatalf("expected other insert errors to stay internal, got %v", appErr.Kind)
	}
}
