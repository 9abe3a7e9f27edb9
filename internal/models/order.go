package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses. Transitions between them are owned by the orders engine.
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderPreparing  = "preparing"
	OrderReady      = "ready"
	OrderDelivering = "delivering"
	OrderCompleted  = "completed"
	OrderCancelled  = "cancelled"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodCash    = "cash"
	PaymentMethodMpesa   = "mpesa"
	PaymentMethodEcocash = "ecocash"
)

// Embedded payment sub-state statuses.
const (
	PaymentPending    = "pending"
	PaymentProcessing = "processing"
	PaymentInitiated  = "initiated"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
	PaymentRefunded   = "refunded"
	PaymentCancelled  = "cancelled"
)

// LocalizedName carries the bilingual product name snapshot stored on order items.
type LocalizedName struct {
	En string `bson:"en" json:"en"`
	St string `bson:"st" json:"st"`
}

// OrderItem is a line item snapshot taken at checkout time.
type OrderItem struct {
	ProductID   primitive.ObjectID `bson:"productId" json:"productId"`
	ProductName LocalizedName      `bson:"productName" json:"productName"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	Price       float64            `bson:"price" json:"price"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// PickupLocation is the vendor side of a delivery.
type PickupLocation struct {
	Address     string      `bson:"address" json:"address"`
	Coordinates Coordinates `bson:"coordinates" json:"coordinates"`
	VendorName  string      `bson:"vendorName,omitempty" json:"vendorName,omitempty"`
	VendorPhone string      `bson:"vendorPhone,omitempty" json:"vendorPhone,omitempty"`
}

// Destination is the passenger side of a delivery.
type Destination struct {
	Address        string      `bson:"address" json:"address"`
	Coordinates    Coordinates `bson:"coordinates" json:"coordinates"`
	Instructions   string      `bson:"instructions,omitempty" json:"instructions,omitempty"`
	PassengerName  string      `bson:"passengerName,omitempty" json:"passengerName,omitempty"`
	PassengerPhone string      `bson:"passengerPhone,omitempty" json:"passengerPhone,omitempty"`
}

// OrderPayment is the payment sub-state embedded on the order document. The
// standalone Payment ledger record mirrors it; the payments engine keeps the
// two consistent.
type OrderPayment struct {
	Method        string     `bson:"method" json:"method"`
	Status        string     `bson:"status" json:"status"`
	PhoneNumber   string     `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	Amount        float64    `bson:"amount" json:"amount"`
	TransactionID string     `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	PaymentDate   *time.Time `bson:"paymentDate,omitempty" json:"paymentDate,omitempty"`
}

// RejectedDriver records a driver who declined this order's delivery so the
// order is never offered to them again.
type RejectedDriver struct {
	DriverID   primitive.ObjectID `bson:"driverId" json:"driverId"`
	Reason     string             `bson:"reason,omitempty" json:"reason,omitempty"`
	RejectedAt time.Time          `bson:"rejectedAt" json:"rejectedAt"`
}

// Order is the central document: one passenger, one vendor, optional driver.
type Order struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PassengerID  primitive.ObjectID  `bson:"passengerId" json:"passengerId"`
	VendorID     primitive.ObjectID  `bson:"vendorId" json:"vendorId"`
	TaxiDriverID *primitive.ObjectID `bson:"taxiDriverId,omitempty" json:"taxiDriverId,omitempty"`

	Items []OrderItem `bson:"items" json:"items"`

	PickupLocation PickupLocation `bson:"pickupLocation" json:"pickupLocation"`
	Destination    Destination    `bson:"destination" json:"destination"`

	Payment OrderPayment `bson:"payment" json:"payment"`

	Status      string  `bson:"status" json:"status"`
	TotalAmount float64 `bson:"totalAmount" json:"totalAmount"`
	DeliveryFee float64 `bson:"deliveryFee" json:"deliveryFee"`
	IsUrgent    bool    `bson:"isUrgent" json:"isUrgent"`
	Notes       string  `bson:"notes,omitempty" json:"notes,omitempty"`

	DriverAssignedAt    *time.Time          `bson:"driverAssignedAt,omitempty" json:"driverAssignedAt,omitempty"`
	PickupConfirmedAt   *time.Time          `bson:"pickupConfirmedAt,omitempty" json:"pickupConfirmedAt,omitempty"`
	DeliveryConfirmedAt *time.Time          `bson:"deliveryConfirmedAt,omitempty" json:"deliveryConfirmedAt,omitempty"`
	EstimatedDelivery   *time.Time          `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	ActualDelivery      *time.Time          `bson:"actualDelivery,omitempty" json:"actualDelivery,omitempty"`
	CancelledAt         *time.Time          `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CancelledBy         *primitive.ObjectID `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`

	RejectedDrivers []RejectedDriver `bson:"rejectedDrivers,omitempty" json:"rejectedDrivers,omitempty"`

	Rating       int    `bson:"rating,omitempty" json:"rating,omitempty"`
	Feedback     string `bson:"feedback,omitempty" json:"feedback,omitempty"`
	VendorRating int    `bson:"vendorRating,omitempty" json:"vendorRating,omitempty"`
	DriverRating int    `bson:"driverRating,omitempty" json:"driverRating,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsTerminal reports whether the order can no longer change status.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderCompleted || o.Status == OrderCancelled
}

// AssignedTo reports whether the given driver is the one assigned to the order.
func (o *Order) AssignedTo(driverID primitive.ObjectID) bool {
	return o.TaxiDriverID != nil && *o.TaxiDriverID == driverID
}

// RejectedBy reports whether the driver already declined this order.
func (o *Order) RejectedBy(driverID primitive.ObjectID) bool {
	for _, r := range o.RejectedDrivers {
		if r.DriverID == driverID {
			return true
		}
	}
	return false
}
