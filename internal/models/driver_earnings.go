package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DriverEarnings statuses. An earnings record starts at assigned when a driver
// takes a delivery and moves to completed when the delivery is confirmed;
// pending records come from payment reconciliation and are paid out later.
const (
	EarningAssigned   = "assigned"
	EarningCompleted  = "completed"
	EarningPending    = "pending"
	EarningProcessing = "processing"
	EarningPaid       = "paid"
	EarningCancelled  = "cancelled"
)

// DefaultCurrency is the platform ledger currency.
const DefaultCurrency = "LSL"

// DriverEarnings is the per-delivery driver-side ledger entry, one per
// (driver, order) pair.
type DriverEarnings struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DriverID      primitive.ObjectID `bson:"driverId" json:"driverId"`
	OrderID       primitive.ObjectID `bson:"orderId" json:"orderId"`
	DeliveryFee   float64            `bson:"deliveryFee" json:"deliveryFee"`
	Commission    float64            `bson:"commission" json:"commission"`
	DriverAmount  float64            `bson:"driverAmount" json:"driverAmount"`
	Currency      string             `bson:"currency" json:"currency"`
	Status        string             `bson:"status" json:"status"`
	PaymentMethod string             `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	TransactionID string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaymentDate   *time.Time         `bson:"paymentDate,omitempty" json:"paymentDate,omitempty"`
	CompletedAt   *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Notes         string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
