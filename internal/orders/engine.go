// Package orders owns the order lifecycle: checkout, the status state
// machine, per-actor transition rules and the side effects each transition
// carries.
package orders

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

// Actor is the authenticated caller attempting an operation.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

// Config carries the fee schedule and delivery estimate window.
type Config struct {
	StandardFee   float64
	UrgentFee     float64
	EstimateDelay time.Duration
}

// Engine mutates orders and publishes lifecycle events.
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

// DeliveryFee resolves the fee for an order's urgency.
func (e *Engine) DeliveryFee(isUrgent bool) float64 {
	if isUrgent {
		return e.cfg.UrgentFee
	}
	return e.cfg.StandardFee
}

/* =========================
   CREATE ORDER
========================= */

type CreateItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type CoordinatesRequest struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

type PickupRequest struct {
	Address     string             `json:"address" binding:"required"`
	Coordinates CoordinatesRequest `json:"coordinates" binding:"required"`
	VendorName  string             `json:"vendorName"`
	VendorPhone string             `json:"vendorPhone"`
}

type DestinationRequest struct {
	Address        string             `json:"address" binding:"required"`
	Coordinates    CoordinatesRequest `json:"coordinates" binding:"required"`
	Instructions   string             `json:"instructions"`
	PassengerName  string             `json:"passengerName"`
	PassengerPhone string             `json:"passengerPhone"`
}

type PaymentSpecRequest struct {
	Method      string `json:"method" binding:"required,oneof=cash mpesa ecocash"`
	PhoneNumber string `json:"phoneNumber"`
}

type CreateOrderRequest struct {
	Items          []CreateItemRequest `json:"items" binding:"required,min=1,dive"`
	PickupLocation PickupRequest       `json:"pickupLocation" binding:"required"`
	Destination    DestinationRequest  `json:"destination" binding:"required"`
	Payment        PaymentSpecRequest  `json:"payment" binding:"required"`
	Notes          string              `json:"notes"`
	IsUrgent       bool                `json:"isUrgent"`
}

// Create validates the checkout request, snapshots prices, decrements stock
// and persists the order at status pending, all inside one session
// transaction so a mid-batch failure leaves no partial stock deduction.
func (e *Engine) Create(ctx context.Context, passengerID primitive.ObjectID, req CreateOrderRequest) (*models.Order, error) {
	if req.Payment.Method != models.PaymentMethodCash && req.Payment.PhoneNumber == "" {
		return nil, apperr.New(apperr.Validation, "phone number is required for M-Pesa or EcoCash")
	}

	session, err := e.db.Client().StartSession()
	if err != nil {
		return nil, apperr.Wrap(err, "could not start session")
	}
	defer session.EndSession(ctx)

	now := time.Now()
	order := &models.Order{
		PassengerID: passengerID,
		PickupLocation: models.PickupLocation{
			Address: req.PickupLocation.Address,
			Coordinates: models.Coordinates{
				Latitude:  req.PickupLocation.Coordinates.Latitude,
				Longitude: req.PickupLocation.Coordinates.Longitude,
			},
			VendorName:  req.PickupLocation.VendorName,
			VendorPhone: req.PickupLocation.VendorPhone,
		},
		Destination: models.Destination{
			Address: req.Destination.Address,
			Coordinates: models.Coordinates{
				Latitude:  req.Destination.Coordinates.Latitude,
				Longitude: req.Destination.Coordinates.Longitude,
			},
			Instructions:   req.Destination.Instructions,
			PassengerName:  req.Destination.PassengerName,
			PassengerPhone: req.Destination.PassengerPhone,
		},
		Status:    models.OrderPending,
		IsUrgent:  req.IsUrgent,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		var pricing orderPricing

		for _, item := range req.Items {
			productID, err := primitive.ObjectIDFromHex(item.ProductID)
			if err != nil {
				return nil, apperr.New(apperr.Validation, "invalid productId: %s", item.ProductID)
			}

			var product models.Product
			err = e.db.Collection("products").FindOne(sessCtx, bson.M{"_id": productID}).Decode(&product)
			if err == mongo.ErrNoDocuments {
				return nil, apperr.New(apperr.NotFound, "product with ID %s not found", item.ProductID)
			}
			if err != nil {
				return nil, err
			}

			if err := pricing.add(&product, item.Quantity); err != nil {
				return nil, err
			}

			// Guarded decrement: the filter is the serialization point for
			// concurrent checkouts of the same product.
			res, err := e.db.Collection("products").UpdateOne(sessCtx,
				bson.M{
					"_id":           productID,
					"available":     true,
					"stockQuantity": bson.M{"$gte": item.Quantity},
				},
				bson.M{"$inc": bson.M{"stockQuantity": -item.Quantity}},
			)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, apperr.New(apperr.Validation,
					"product %s is not available in the requested quantity", product.Name.En)
			}
		}

		fee := e.DeliveryFee(req.IsUrgent)
		order.VendorID = pricing.vendorID
		order.Items = pricing.items
		order.DeliveryFee = fee
		order.TotalAmount = pricing.totalWithFee(fee)

		paymentStatus := models.PaymentProcessing
		if req.Payment.Method == models.PaymentMethodCash {
			paymentStatus = models.PaymentPending
		}
		order.Payment = models.OrderPayment{
			Method:      req.Payment.Method,
			Status:      paymentStatus,
			PhoneNumber: req.Payment.PhoneNumber,
			Amount:      order.TotalAmount,
		}

		res, err := e.db.Collection("orders").InsertOne(sessCtx, order)
		if err != nil {
			return nil, err
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}
		return nil, nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Wrap(err, "could not create order")
	}

	log.Printf("[ORDER] [INFO] order %s created for passenger %s", order.ID.Hex(), passengerID.Hex())
	e.notifier.Publish(notify.VendorRoom(order.VendorID.Hex()), notify.EventNewOrder, order)

	return order, nil
}

/* =========================
   STATUS TRANSITIONS
========================= */

// UpdateStatus applies one transition from the table, enforcing the per-actor
// rules and running the transition's side effects.
func (e *Engine) UpdateStatus(ctx context.Context, actor Actor, orderID primitive.ObjectID, target string) (*models.Order, error) {
	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := authorizeTransition(actor, order, target); err != nil {
		return nil, err
	}
	if err := ValidateTransition(order.Status, target); err != nil {
		return nil, err
	}

	now := time.Now()
	set := bson.M{"status": target, "updatedAt": now}

	switch target {
	case models.OrderDelivering:
		set["estimatedDelivery"] = now.Add(e.cfg.EstimateDelay)
		if order.PickupConfirmedAt == nil {
			set["pickupConfirmedAt"] = now
		}
	case models.OrderCompleted:
		set["actualDelivery"] = now
		set["deliveryConfirmedAt"] = now
	case models.OrderCancelled:
		set["cancelledAt"] = now
		set["cancelledBy"] = actor.ID
	}

	if target == models.OrderCancelled {
		if err := e.cancelAndRestoreStock(ctx, order, set); err != nil {
			return nil, err
		}
	} else {
		// The current status in the filter serializes concurrent transitions.
		res, err := e.db.Collection("orders").UpdateOne(ctx,
			bson.M{"_id": order.ID, "status": order.Status},
			bson.M{"$set": set},
		)
		if err != nil {
			return nil, apperr.Wrap(err, "could not update order status")
		}
		if res.MatchedCount == 0 {
			current, ferr := e.findOrder(ctx, orderID)
			if ferr != nil {
				return nil, ferr
			}
			return nil, apperr.New(apperr.InvalidTransition,
				"invalid status transition from %s to %s", current.Status, target)
		}
	}

	updated, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	log.Printf("[ORDER] [INFO] order %s: %s -> %s by %s", orderID.Hex(), order.Status, target, actor.Role)

	e.notifier.Publish(notify.OrderRoom(orderID.Hex()), notify.EventOrderUpdated, updated)
	if target == models.OrderCancelled && actor.Role == models.RolePassenger {
		e.notifier.Publish(notify.VendorRoom(order.VendorID.Hex()), notify.EventOrderCancelled, updated)
	} else if target == models.OrderReady && actor.Role == models.RoleVendor {
		e.notifier.Publish(notify.AllDriversRoom, notify.EventDeliveryAvailable, updated)
	}

	return updated, nil
}

// authorizeTransition encodes who may move an order where. Admin may always
// transition; vendors only their own orders; drivers only orders assigned to
// them; passengers may only cancel while pending or confirmed.
func authorizeTransition(actor Actor, order *models.Order, target string) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleVendor:
		if order.VendorID == actor.ID {
			return nil
		}
	case models.RoleTaxiDriver:
		if order.AssignedTo(actor.ID) {
			return nil
		}
	case models.RolePassenger:
		if order.PassengerID != actor.ID {
			break
		}
		if target != models.OrderCancelled {
			return apperr.New(apperr.Forbidden, "you do not have permission to update this order")
		}
		if order.Status != models.OrderPending && order.Status != models.OrderConfirmed {
			return apperr.New(apperr.InvalidTransition,
				"you can only cancel orders that are pending or confirmed, not %s", order.Status)
		}
		return nil
	}
	return apperr.New(apperr.Forbidden, "you do not have permission to update this order")
}

// cancelAndRestoreStock flips the order to cancelled and gives every ordered
// quantity back to its product, atomically.
func (e *Engine) cancelAndRestoreStock(ctx context.Context, order *models.Order, set bson.M) error {
	session, err := e.db.Client().StartSession()
	if err != nil {
		return apperr.Wrap(err, "could not start session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := e.db.Collection("orders").UpdateOne(sessCtx,
			bson.M{"_id": order.ID, "status": order.Status},
			bson.M{"$set": set},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, apperr.New(apperr.InvalidTransition,
				"order %s is no longer %s", order.ID.Hex(), order.Status)
		}

		for _, item := range order.Items {
			_, err := e.db.Collection("products").UpdateOne(sessCtx,
				bson.M{"_id": item.ProductID},
				bson.M{"$inc": bson.M{"stockQuantity": item.Quantity}},
			)
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return err
		}
		return apperr.Wrap(err, "could not cancel order")
	}
	return nil
}

/* =========================
   READS
========================= */

// Get loads one order, visible only to the parties on it or an admin.
func (e *Engine) Get(ctx context.Context, actor Actor, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if actor.Role != models.RoleAdmin &&
		order.PassengerID != actor.ID &&
		order.VendorID != actor.ID &&
		!order.AssignedTo(actor.ID) {
		return nil, apperr.New(apperr.Forbidden, "you are not authorized to view this order")
	}
	return order, nil
}

// ListForActor returns the orders visible to the caller's role: passengers
// and vendors see their own, drivers their assignments, admins everything.
func (e *Engine) ListForActor(ctx context.Context, actor Actor) ([]models.Order, error) {
	filter := bson.M{}
	switch actor.Role {
	case models.RolePassenger:
		filter["passengerId"] = actor.ID
	case models.RoleVendor:
		filter["vendorId"] = actor.ID
	case models.RoleTaxiDriver:
		filter["taxiDriverId"] = actor.ID
	}
	return e.listOrders(ctx, filter)
}

// ListAll returns every order, newest first. Admin only at the route level.
func (e *Engine) ListAll(ctx context.Context) ([]models.Order, error) {
	return e.listOrders(ctx, bson.M{})
}

func (e *Engine) listOrders(ctx context.Context, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := e.db.Collection("orders").Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "could not fetch orders")
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, apperr.Wrap(err, "could not parse orders")
	}
	return orders, nil
}

func (e *Engine) findOrder(ctx context.Context, orderID primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := e.db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "no order found with that ID")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "could not load order")
	}
	return &order, nil
}

/* =========================
   RATINGS
========================= */

type RateOrderRequest struct {
	VendorRating int    `json:"vendorRating" binding:"omitempty,min=1,max=5"`
	DriverRating int    `json:"driverRating" binding:"omitempty,min=1,max=5"`
	Feedback     string `json:"feedback"`
}

// Rate records post-delivery feedback; only the order's passenger may rate,
// and only once the order completed.
func (e *Engine) Rate(ctx context.Context, passengerID primitive.ObjectID, orderID primitive.ObjectID, req RateOrderRequest) (*models.Order, error) {
	if req.VendorRating == 0 && req.DriverRating == 0 && req.Feedback == "" {
		return nil, apperr.New(apperr.Validation, "at least one rating or feedback is required")
	}

	order, err := e.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PassengerID != passengerID {
		return nil, apperr.New(apperr.Forbidden, "you are not authorized to rate this order")
	}
	if order.Status != models.OrderCompleted {
		return nil, apperr.New(apperr.Validation, "only completed orders can be rated")
	}

	set := bson.M{"updatedAt": time.Now()}
	if req.VendorRating > 0 {
		set["vendorRating"] = req.VendorRating
	}
	if req.DriverRating > 0 {
		set["driverRating"] = req.DriverRating
	}
	if req.Feedback != "" {
		set["feedback"] = req.Feedback
	}

	_, err = e.db.Collection("orders").UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": set})
	if err != nil {
		return nil, apperr.Wrap(err, "could not save rating")
	}
	return e.findOrder(ctx, orderID)
}
