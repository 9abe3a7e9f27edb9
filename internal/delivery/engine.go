// Package delivery is the single authoritative path for matching drivers to
// orders: listing deliverable work, accepting or rejecting it, and settling
// the driver-side ledger.
package delivery

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
	"lesmarket/internal/notify"
)

// Orders in one of these statuses can still be taken by a driver.
var acceptableStatuses = []string{models.OrderConfirmed, models.OrderPreparing, models.OrderReady}

// A driver only sees orders whose payment has at least been initiated.
var acceptablePaymentStatuses = []string{models.PaymentCompleted, models.PaymentProcessing, models.PaymentInitiated}

// Config mirrors the orders engine fee schedule for the fallback fee.
type Config struct {
	StandardFee   float64
	UrgentFee     float64
	EstimateDelay time.Duration
}

// Engine assigns drivers and maintains DriverEarnings.
type Engine struct {
	db       *mongo.Database
	notifier notify.Notifier
	cfg      Config
}

func NewEngine(db *mongo.Database, notifier notify.Notifier, cfg Config) *Engine {
	if cfg.StandardFee == 0 {
		cfg.StandardFee = 15.0
	}
	if cfg.UrgentFee == 0 {
		cfg.UrgentFee = 25.0
	}
	if cfg.EstimateDelay == 0 {
		cfg.EstimateDelay = 30 * time.Minute
	}
	return &Engine{db: db, notifier: notifier, cfg: cfg}
}

// deliveryFee prefers the fee stored on the order, falling back to the
// schedule for legacy orders persisted without one.
func (e *Engine) deliveryFee(order *models.Order) float64 {
	if order.DeliveryFee > 0 {
		return order.DeliveryFee
	}
	if order.IsUrgent {
		return e.cfg.UrgentFee
	}
	return e.cfg.StandardFee
}

/* =========================
   AVAILABLE ORDERS
========================= */

// ContactInfo is a resolved display name and phone.
type ContactInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// DeliveryInfo is the route summary shown to drivers.
type DeliveryInfo struct {
	PickupLocation models.PickupLocation `json:"pickupLocation"`
	Destination    models.Destination    `json:"destination"`
	Instructions   string                `json:"instructions,omitempty"`
	Fee            float64               `json:"fee"`
	DistanceKm     float64               `json:"distance"`
	IsUrgent       bool                  `json:"isUrgent"`
}

// ItemSummary is a driver-facing line item.
type ItemSummary struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// AvailableOrder is one row of the driver's available-work list.
type AvailableOrder struct {
	ID            primitive.ObjectID `json:"id"`
	OrderNumber   string             `json:"orderNumber"`
	Passenger     ContactInfo        `json:"passenger"`
	Vendor        ContactInfo        `json:"vendor"`
	DeliveryInfo  DeliveryInfo       `json:"deliveryInfo"`
	Items         []ItemSummary      `json:"items"`
	OrderTotal    float64            `json:"orderTotal"`
	Status        string             `json:"status"`
	PaymentStatus string             `json:"paymentStatus"`
	CreatedAt     time.Time          `json:"createdAt"`
	Notes         string             `json:"notes,omitempty"`
}

// ListAvailable returns deliverable orders the driver has not rejected,
// newest first, with distances and resolved contact details.
func (e *Engine) ListAvailable(ctx context.Context, driverID primitive.ObjectID) ([]AvailableOrder, error) {
	filter := bson.M{
		"status":                   bson.M{"$in": acceptableStatuses},
		"taxiDriverId":             bson.M{"$exists": false},
		"payment.status":           bson.M{"$in": acceptablePaymentStatuses},
		"rejectedDrivers.driverId": bson.M{"$ne": driverID},
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := e.db.Collection("orders").Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "could not fetch available orders")
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, apperr.Wrap(err, "could not parse available orders")
	}

	users, err := e.loadUsers(ctx, orders)
	if err != nil {
		return nil, err
	}

	rows := make([]AvailableOrder, 0, len(orders))
	for i := range orders {
		rows = append(rows, e.formatAvailable(&orders[i], users))
	}

	log.Printf("[DELIVERY] [INFO] %d available orders for driver %s", len(rows), driverID.Hex())
	return rows, nil
}

// loadUsers batch-fetches the passengers and vendors referenced by the orders
// so contact fallbacks resolve without a query per row.
func (e *Engine) loadUsers(ctx context.Context, orders []models.Order) (map[primitive.ObjectID]models.User, error) {
	ids := make([]primitive.ObjectID, 0, len(orders)*2)
	seen := make(map[primitive.ObjectID]struct{})
	for _, o := range orders {
		for _, id := range []primitive.ObjectID{o.PassengerID, o.VendorID} {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	users := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	cursor, err := e.db.Collection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, apperr.Wrap(err, "could not fetch users")
	}
	defer cursor.Close(ctx)

	var list []models.User
	if err := cursor.All(ctx, &list); err != nil {
		return nil, apperr.Wrap(err, "could not parse users")
	}
	for _, u := range list {
		users[u.ID] = u
	}
	return users, nil
}

func (e *Engine) formatAvailable(order *models.Order, users map[primitive.ObjectID]models.User) AvailableOrder {
	passenger := users[order.PassengerID]
	vendor := users[order.VendorID]

	items := make([]ItemSummary, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemSummary{
			Name:     item.ProductName.En,
			Quantity: item.Quantity,
			Price:    item.Price,
		})
	}

	return AvailableOrder{
		ID:          order.ID,
		OrderNumber: OrderNumber(order.ID),
		Passenger: ContactInfo{
			Name:  fallback(order.Destination.PassengerName, passenger.Profile.FullName()),
			Phone: fallback(order.Destination.PassengerPhone, passenger.Profile.Phone),
		},
		Vendor: ContactInfo{
			Name:  fallback(order.PickupLocation.VendorName, vendor.Profile.FullName()),
			Phone: fallback(order.PickupLocation.VendorPhone, vendor.Profile.Phone),
		},
		DeliveryInfo: DeliveryInfo{
			PickupLocation: order.PickupLocation,
			Destination:    order.Destination,
			Instructions:   order.Destination.Instructions,
			Fee:            e.deliveryFee(order),
			DistanceKm:     Distance(order.PickupLocation.Coordinates, order.Destination.Coordinates),
			IsUrgent:       order.IsUrgent,
		},
		Items:         items,
		OrderTotal:    order.TotalAmount,
		Status:        order.Status,
		PaymentStatus: order.Payment.Status,
		CreatedAt:     order.CreatedAt,
		Notes:         order.Notes,
	}
}

/* =========================
   ACCEPT / ASSIGN
========================= */

// Accept is the single acceptance entry point for drivers. The update filter
// requires taxiDriverId to be unset, so of two concurrent accepts exactly one
// matches and the other observes AlreadyAssigned.
func (e *Engine) Accept(ctx context.Context, driverID, orderID primitive.ObjectID) (*models.Order, error) {
	return e.assign(ctx, orderID, driverID, acceptableStatuses, true)
}

// Assign is the manual vendor/admin path. It requires the order to be ready
// and the target to actually be a driver, then converges on the same fields
// and earnings record as Accept.
func (e *Engine) Assign(ctx context.Context, actorID primitive.ObjectID, actorRole string, orderID, driverID primitive.ObjectID) (*models.Order, error) {
	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleAdmin && order.VendorID != actorID {
		return nil, apperr.New(apperr.Forbidden, "you are not authorized to assign a driver to this order")
	}
	if order.Status != models.OrderReady {
		return nil, apperr.New(apperr.InvalidTransition,
			"order must be ready before assigning a driver, current status: %s", order.Status)
	}

	var driver models.User
	err = e.db.Collection("users").FindOne(ctx, bson.M{"_id": driverID}).Decode(&driver)
	if err == mongo.ErrNoDocuments || (err == nil && driver.Role != models.RoleTaxiDriver) {
		return nil, apperr.New(apperr.Validation, "invalid or non-driver user ID")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "could not load driver")
	}

	updated, err := e.assign(ctx, orderID, driverID, []string{models.OrderReady}, false)
	if err != nil {
		return nil, err
	}
	e.notifier.Publish(notify.DriverRoom(driverID.Hex()), notify.EventDeliveryAssigned, updated)
	return updated, nil
}

func (e *Engine) assign(ctx context.Context, orderID, driverID primitive.ObjectID, fromStatuses []string, gatePayment bool) (*models.Order, error) {
	now := time.Now()
	filter := bson.M{
		"_id":          orderID,
		"taxiDriverId": bson.M{"$exists": false},
		"status":       bson.M{"$in": fromStatuses},
	}
	if gatePayment {
		filter["payment.status"] = bson.M{"$in": acceptablePaymentStatuses}
	}

	res, err := e.db.Collection("orders").UpdateOne(ctx, filter, bson.M{"$set": bson.M{
		"taxiDriverId":      driverID,
		"status":            models.OrderDelivering,
		"driverAssignedAt":  now,
		"estimatedDelivery": now.Add(e.cfg.EstimateDelay),
		"updatedAt":         now,
	}})
	if err != nil {
		return nil, apperr.Wrap(err, "could not assign driver")
	}

	if res.MatchedCount == 0 {
		if err := e.explainAssignFailure(ctx, orderID, driverID, fromStatuses, gatePayment); err != nil {
			return nil, err
		}
		// Same driver retried an acceptance that already applied.
		return e.findOrder(ctx, orderID)
	}

	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := e.createEarnings(ctx, driverID, order); err != nil {
		return nil, err
	}

	log.Printf("[DELIVERY] [INFO] driver %s assigned to order %s, fee %.2f",
		driverID.Hex(), orderID.Hex(), e.deliveryFee(order))

	e.notifier.Publish(notify.OrderRoom(orderID.Hex()), notify.EventDriverAssigned, order)
	e.notifier.Publish(notify.VendorRoom(order.VendorID.Hex()), notify.EventDriverAssigned, order)
	e.notifier.Publish(notify.PassengerRoom(order.PassengerID.Hex()), notify.EventDriverAssigned, order)

	return order, nil
}

// explainAssignFailure rereads the order to turn a missed conditional update
// into the precise taxonomy error.
func (e *Engine) explainAssignFailure(ctx context.Context, orderID, driverID primitive.ObjectID, fromStatuses []string, gatePayment bool) error {
	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.TaxiDriverID != nil {
		if *order.TaxiDriverID == driverID {
			// The same driver retried; nothing left to do.
			return nil
		}
		return apperr.New(apperr.AlreadyAssigned, "delivery already assigned to another driver")
	}
	for _, s := range fromStatuses {
		if order.Status == s {
			if gatePayment {
				return apperr.New(apperr.Validation, "order payment not confirmed")
			}
			return apperr.New(apperr.Unexpected, "could not assign driver")
		}
	}
	return apperr.New(apperr.InvalidTransition,
		"order cannot be accepted for delivery in current status: %s", order.Status)
}

// createEarnings writes the (driver, order) ledger entry. The upsert keyed on
// the unique index makes acceptance retries safe.
func (e *Engine) createEarnings(ctx context.Context, driverID primitive.ObjectID, order *models.Order) error {
	now := time.Now()
	fee := e.deliveryFee(order)
	_, err := e.db.Collection("driver_earnings").UpdateOne(ctx,
		bson.M{"driverId": driverID, "orderId": order.ID},
		bson.M{
			"$setOnInsert": bson.M{
				"driverId":     driverID,
				"orderId":      order.ID,
				"deliveryFee":  fee,
				"driverAmount": fee,
				"currency":     models.DefaultCurrency,
				"status":       models.EarningAssigned,
				"createdAt":    now,
				"updatedAt":    now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return apperr.Wrap(err, "could not create earnings record")
	}
	return nil
}

/* =========================
   REJECT / START / COMPLETE
========================= */

// Reject adds the driver to the order's rejection list. Repeat rejections by
// the same driver are no-ops; the order stays visible to everyone else.
func (e *Engine) Reject(ctx context.Context, driverID, orderID primitive.ObjectID, reason string) error {
	res, err := e.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID, "rejectedDrivers.driverId": bson.M{"$ne": driverID}},
		bson.M{
			"$push": bson.M{"rejectedDrivers": models.RejectedDriver{
				DriverID:   driverID,
				Reason:     reason,
				RejectedAt: time.Now(),
			}},
		},
	)
	if err != nil {
		return apperr.Wrap(err, "could not reject order")
	}
	if res.MatchedCount == 0 {
		// Either already rejected (fine) or the order does not exist.
		if _, err := e.findOrder(ctx, orderID); err != nil {
			return err
		}
	}
	log.Printf("[DELIVERY] [INFO] driver %s rejected order %s", driverID.Hex(), orderID.Hex())
	return nil
}

// Start marks the pickup from the vendor. Idempotent on pickupConfirmedAt;
// does not change the order status.
func (e *Engine) Start(ctx context.Context, driverID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.AssignedTo(driverID) {
		return nil, apperr.New(apperr.Forbidden, "not authorized to start this delivery")
	}

	if order.PickupConfirmedAt == nil {
		now := time.Now()
		_, err = e.db.Collection("orders").UpdateOne(ctx,
			bson.M{"_id": orderID, "pickupConfirmedAt": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"pickupConfirmedAt": now, "updatedAt": now}},
		)
		if err != nil {
			return nil, apperr.Wrap(err, "could not start delivery")
		}
	}
	return e.findOrder(ctx, orderID)
}

// Complete finishes the delivery and settles the driver's ledger entry.
func (e *Engine) Complete(ctx context.Context, driverID, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.AssignedTo(driverID) {
		return nil, apperr.New(apperr.Forbidden, "you are not assigned to this order")
	}
	if order.Status != models.OrderDelivering {
		return nil, apperr.New(apperr.InvalidTransition,
			"invalid status transition from %s to %s", order.Status, models.OrderCompleted)
	}

	now := time.Now()
	res, err := e.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": orderID, "status": models.OrderDelivering},
		bson.M{"$set": bson.M{
			"status":              models.OrderCompleted,
			"actualDelivery":      now,
			"deliveryConfirmedAt": now,
			"updatedAt":           now,
		}},
	)
	if err != nil {
		return nil, apperr.Wrap(err, "could not complete delivery")
	}
	if res.MatchedCount == 0 {
		current, ferr := e.findOrder(ctx, orderID)
		if ferr != nil {
			return nil, ferr
		}
		return nil, apperr.New(apperr.InvalidTransition,
			"invalid status transition from %s to %s", current.Status, models.OrderCompleted)
	}

	_, err = e.db.Collection("driver_earnings").UpdateOne(ctx,
		bson.M{"orderId": orderID, "driverId": driverID},
		bson.M{"$set": bson.M{
			"status":      models.EarningCompleted,
			"completedAt": now,
			"updatedAt":   now,
		}},
	)
	if err != nil {
		return nil, apperr.Wrap(err, "could not settle earnings record")
	}

	updated, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	log.Printf("[DELIVERY] [INFO] driver %s completed order %s, earned %.2f",
		driverID.Hex(), orderID.Hex(), e.deliveryFee(updated))

	e.notifier.Publish(notify.OrderRoom(orderID.Hex()), notify.EventOrderUpdated, updated)
	e.notifier.Publish(notify.PassengerRoom(updated.PassengerID.Hex()), notify.EventDeliveryCompleted, updated)
	e.notifier.Publish(notify.VendorRoom(updated.VendorID.Hex()), notify.EventDeliveryCompleted, updated)

	return updated, nil
}

/* =========================
   DRIVER READS
========================= */

// ListAssigned returns the driver's in-flight deliveries.
func (e *Engine) ListAssigned(ctx context.Context, driverID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "driverAssignedAt", Value: -1}})
	cursor, err := e.db.Collection("orders").Find(ctx, bson.M{
		"taxiDriverId": driverID,
		"status":       models.OrderDelivering,
	}, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "could not fetch assigned orders")
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, apperr.Wrap(err, "could not parse assigned orders")
	}
	return orders, nil
}

// Earnings returns the driver's full ledger plus the folded summary.
func (e *Engine) Earnings(ctx context.Context, driverID primitive.ObjectID) ([]models.DriverEarnings, EarningsSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := e.db.Collection("driver_earnings").Find(ctx, bson.M{"driverId": driverID}, opts)
	if err != nil {
		return nil, EarningsSummary{}, apperr.Wrap(err, "could not fetch earnings")
	}
	defer cursor.Close(ctx)

	earnings := make([]models.DriverEarnings, 0)
	if err := cursor.All(ctx, &earnings); err != nil {
		return nil, EarningsSummary{}, apperr.Wrap(err, "could not parse earnings")
	}
	return earnings, Summarize(earnings), nil
}

func (e *Engine) findOrder(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := e.db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "could not load order")
	}
	return &order, nil
}
