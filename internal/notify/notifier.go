// Package notify delivers room-scoped real-time events to connected clients.
// Delivery is fire-and-forget: a slow or absent subscriber never blocks an
// engine operation.
package notify

import "fmt"

// Event names published by the engines.
const (
	EventNewOrder          = "new_order"
	EventOrderUpdated      = "order_updated"
	EventDriverAssigned    = "driver_assigned"
	EventOrderCancelled    = "order_cancelled"
	EventDeliveryAssigned  = "delivery_assigned"
	EventDeliveryAvailable = "new_delivery_available"
	EventDeliveryCompleted = "delivery_completed"
	EventNewMessage        = "new_message"
)

// AllDriversRoom receives broadcasts meant for every connected driver.
const AllDriversRoom = "drivers"

// Notifier is the capability handed to each engine.
type Notifier interface {
	Publish(room, event string, payload interface{})
}

// OrderRoom keys the room scoped to a single order.
func OrderRoom(orderID string) string { return fmt.Sprintf("order_%s", orderID) }

// VendorRoom keys a vendor's private room.
func VendorRoom(vendorID string) string { return fmt.Sprintf("vendor_%s", vendorID) }

// PassengerRoom keys a passenger's private room.
func PassengerRoom(passengerID string) string { return fmt.Sprintf("passenger_%s", passengerID) }

// DriverRoom keys a driver's private room.
func DriverRoom(driverID string) string { return fmt.Sprintf("driver_%s", driverID) }

// Nop is a Notifier that drops everything; used in tests.
type Nop struct{}

func (Nop) Publish(string, string, interface{}) {}
