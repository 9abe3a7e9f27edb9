// Package payments coordinates the standalone Payment ledger with the payment
// sub-state embedded on each order, driving both through a simulated
// mobile-money provider.
package payments

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
)

// Platform commission taken from the delivery fee when earnings are created
// at payment confirmation time.
const (
	platformCommissionRate = 0.1
	driverShareRate        = 0.9
)

// Engine keeps the two payment representations consistent.
type Engine struct {
	db        *mongo.Database
	providers map[string]Provider
}

func NewEngine(db *mongo.Database, providers ...Provider) *Engine {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Engine{db: db, providers: byName}
}

/* =========================
   INITIATE
========================= */

// InitiateResult pairs the updated order snapshot with the ledger record and
// the provider's response.
type InitiateResult struct {
	Order           *models.Order   `json:"order"`
	Payment         *models.Payment `json:"payment"`
	TransactionID   string          `json:"transactionId"`
	ProviderMessage string          `json:"message"`
}

// Initiate starts a mobile-money payment for the passenger's own order. Only
// an order whose embedded payment is still pending can be initiated; the
// simulated round trip then moves both records to processing or failed.
func (e *Engine) Initiate(ctx context.Context, passengerID, orderID primitive.ObjectID, phoneNumber, method string) (*InitiateResult, error) {
	provider, ok := e.providers[method]
	if !ok {
		return nil, apperr.New(apperr.Validation, "unsupported payment method: %s", method)
	}

	var order models.Order
	err := e.db.Collection("orders").FindOne(ctx, bson.M{
		"_id":         orderID,
		"passengerId": passengerID,
	}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "order not found or you are not authorized")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "could not load order")
	}

	if order.Payment.Status != models.PaymentPending {
		return nil, apperr.New(apperr.AlreadyProcessed, "payment already %s", order.Payment.Status)
	}

	// The embedded status is the serialization point: of two concurrent
	// initiations only one flips pending to processing.
	res, err := e.db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": order.ID, "payment.status": models.PaymentPending},
		bson.M{"$set": bson.M{"payment.status": models.PaymentProcessing, "updatedAt": time.Now()}},
	)
	if err != nil {
		return nil, apperr.Wrap(err, "could not update order payment")
	}
	if res.MatchedCount == 0 {
		var current models.Order
		if err := e.db.Collection("orders").FindOne(ctx, bson.M{"_id": order.ID}).Decode(&current); err != nil {
			return nil, apperr.Wrap(err, "could not load order")
		}
		return nil, apperr.New(apperr.AlreadyProcessed, "payment already %s", current.Payment.Status)
	}
	order.Payment.Status = models.PaymentProcessing

	payment, err := e.upsertLedger(ctx, &order, method, phoneNumber, models.PaymentProcessing, provider.Reference())
	if err != nil {
		return nil, err
	}

	log.Printf("[PAYMENT] [INFO] initiating %s payment for order %s", method, orderID.Hex())

	result, perr := provider.Initiate(phoneNumber, order.TotalAmount)
	now := time.Now()
	if perr != nil {
		// Terminal failure for this attempt; the passenger must re-initiate.
		if err := e.markFailed(ctx, &order, payment, perr.Error()); err != nil {
			return nil, err
		}
		return nil, &apperr.Error{
			Kind:    apperr.UpstreamFailure,
			Message: "failed to initiate " + method + " payment, please try again",
			Err:     perr,
		}
	}

	_, err = e.db.Collection("orders").UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": bson.M{
		"payment.status":        models.PaymentProcessing,
		"payment.transactionId": result.TransactionID,
		"payment.phoneNumber":   phoneNumber,
		"updatedAt":             now,
	}})
	if err != nil {
		return nil, apperr.Wrap(err, "could not update order payment")
	}

	_, err = e.db.Collection("payments").UpdateOne(ctx, bson.M{"_id": payment.ID}, bson.M{"$set": bson.M{
		"reference": result.TransactionID,
		"updatedAt": now,
	}})
	if err != nil {
		return nil, apperr.Wrap(err, "could not update payment record")
	}

	order.Payment.Status = models.PaymentProcessing
	order.Payment.TransactionID = result.TransactionID
	order.Payment.PhoneNumber = phoneNumber
	payment.Reference = result.TransactionID

	log.Printf("[PAYMENT] [INFO] %s payment initiated for order %s, tx %s", method, orderID.Hex(), result.TransactionID)

	return &InitiateResult{
		Order:           &order,
		Payment:         payment,
		TransactionID:   result.TransactionID,
		ProviderMessage: result.Message,
	}, nil
}

// upsertLedger finds or creates the at-most-one ledger record for the order.
func (e *Engine) upsertLedger(ctx context.Context, order *models.Order, method, phoneNumber, status, reference string) (*models.Payment, error) {
	now := time.Now()
	coll := e.db.Collection("payments")

	var payment models.Payment
	err := coll.FindOne(ctx, bson.M{"orderId": order.ID}).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		payment = models.Payment{
			OrderID:       order.ID,
			PassengerID:   order.PassengerID,
			VendorID:      order.VendorID,
			Amount:        order.TotalAmount,
			PaymentMethod: method,
			PhoneNumber:   phoneNumber,
			Status:        status,
			Reference:     reference,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		res, err := coll.InsertOne(ctx, payment)
		if err != nil {
			return nil, classifyLedgerInsertErr(err)
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			payment.ID = id
		}
		return &payment, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, "could not load payment record")
	}

	_, err = coll.UpdateOne(ctx, bson.M{"_id": payment.ID}, bson.M{"$set": bson.M{
		"status":      status,
		"phoneNumber": phoneNumber,
		"reference":   reference,
		"updatedAt":   now,
	}})
	if err != nil {
		return nil, apperr.Wrap(err, "could not update payment record")
	}
	payment.Status = status
	payment.PhoneNumber = phoneNumber
	payment.Reference = reference
	return &payment, nil
}

// classifyLedgerInsertErr maps a unique-index collision on the at-most-one
// ledger record to the taxonomy; anything else stays internal.
func classifyLedgerInsertErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return apperr.New(apperr.AlreadyProcessed, "payment already initiated for this order")
	}
	return apperr.Wrap(err, "could not create payment record")
}

func (e *Engine) markFailed(ctx context.Context, order *models.Order, payment *models.Payment, reason string) error {
	now := time.Now()
	_, err := e.db.Collection("payments").UpdateOne(ctx, bson.M{"_id": payment.ID}, bson.M{"$set": bson.M{
		"status":        models.PaymentFailed,
		"failureReason": reason,
		"updatedAt":     now,
	}})
	if err != nil {
		return apperr.Wrap(err, "could not mark payment failed")
	}
	_, err = e.db.Collection("orders").UpdateOne(ctx, bson.M{"_id": order.ID}, bson.M{"$set": bson.M{
		"payment.status": models.PaymentFailed,
		"updatedAt":      now,
	}})
	if err != nil {
		return apperr.Wrap(err, "could not mark order payment failed")
	}
	log.Printf("[PAYMENT] [ERROR] payment failed for order %s: %s", order.ID.Hex(), reason)
	return nil
}

/* =========================
   CONFIRM / REFUND
========================= */

// ConfirmRequest is the reconciliation payload, standing in for a provider
// callback or a manual test trigger.
type ConfirmRequest struct {
	OrderID       string `json:"orderId" binding:"required"`
	Status        string `json:"status" binding:"required,oneof=completed failed"`
	TransactionID string `json:"transactionId"`
	FailureReason string `json:"failureReason"`
}

// ConfirmResult pairs the reconciled order and ledger record.
type ConfirmResult struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment"`
}

// Confirm reconciles a reported provider outcome onto both payment
// representations. A completed payment promotes a still-pending order to
// confirmed; the commission-split earnings record is only created when a
// driver is assigned and the order already completed.
func (e *Engine) Confirm(ctx context.Context, orderID primitive.ObjectID, status, transactionID, failureReason string) (*ConfirmResult, error) {
	var order models.Order
	err := e.db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "could not load order")
	}

	payment, err := e.findOrCreateLedger(ctx, &order, status, transactionID)
	if err != nil {
		return nil, err
	}
	reference := confirmReference(transactionID, payment.Reference)

	now := time.Now()
	orderSet := bson.M{"payment.status": status, "updatedAt": now}
	paymentSet := bson.M{"status": status, "updatedAt": now}

	switch status {
	case models.PaymentCompleted:
		orderSet["payment.paymentDate"] = now
		orderSet["payment.transactionId"] = reference
		if order.Status == models.OrderPending {
			orderSet["status"] = models.OrderConfirmed
			order.Status = models.OrderConfirmed
		}
		paymentSet["completedAt"] = now
		paymentSet["reference"] = reference

		if order.TaxiDriverID != nil && order.Status == models.OrderCompleted {
			if err := e.createSettlementEarnings(ctx, &order); err != nil {
				return nil, err
			}
		}
	case models.PaymentFailed:
		if failureReason == "" {
			failureReason = "Payment failed"
		}
		paymentSet["failureReason"] = failureReason
	default:
		return nil, apperr.New(apperr.Validation, "invalid payment status: %s", status)
	}

	if _, err := e.db.Collection("orders").UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": orderSet}); err != nil {
		return nil, apperr.Wrap(err, "could not update order payment")
	}
	if _, err := e.db.Collection("payments").UpdateOne(ctx, bson.M{"_id": payment.ID}, bson.M{"$set": paymentSet}); err != nil {
		return nil, apperr.Wrap(err, "could not update payment record")
	}

	log.Printf("[PAYMENT] [INFO] payment %s for order %s", status, orderID.Hex())

	updatedOrder, updatedPayment, err := e.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Order: updatedOrder, Payment: updatedPayment}, nil
}

// confirmReference picks the reference to record at confirmation: the
// reported transaction id, else the ledger's existing reference, else a
// manual marker for test-triggered confirmations.
func confirmReference(transactionID, existing string) string {
	if transactionID != "" {
		return transactionID
	}
	if existing != "" {
		return existing
	}
	return "MANUAL_" + primitive.NewObjectID().Hex()
}

func (e *Engine) findOrCreateLedger(ctx context.Context, order *models.Order, status, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := e.db.Collection("payments").FindOne(ctx, bson.M{"orderId": order.ID}).Decode(&payment)
	if err == nil {
		return &payment, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, apperr.Wrap(err, "could not load payment record")
	}

	now := time.Now()
	payment = models.Payment{
		OrderID:       order.ID,
		PassengerID:   order.PassengerID,
		VendorID:      order.VendorID,
		Amount:        order.TotalAmount,
		PaymentMethod: order.Payment.Method,
		PhoneNumber:   order.Payment.PhoneNumber,
		Status:        status,
		Reference:     confirmReference(transactionID, ""),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res, err := e.db.Collection("payments").InsertOne(ctx, payment)
	if err != nil {
		return nil, classifyLedgerInsertErr(err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		payment.ID = id
	}
	return &payment, nil
}

// settlementSplit divides a delivery fee into the platform commission and the
// driver's share.
func settlementSplit(deliveryFee float64) (commission, driverAmount float64) {
	return deliveryFee * platformCommissionRate, deliveryFee * driverShareRate
}

// settlementEarningsUpdate builds the upsert that settles the earnings record
// keyed (driverId, orderId). Assignment already created that record with the
// full fee as driverAmount, so the split and the pending payout status must go
// through $set; $setOnInsert carries only the identity fields for the case
// where no assignment-time record exists.
func settlementEarningsUpdate(order *models.Order, now time.Time) bson.M {
	commission, driverAmount := settlementSplit(order.DeliveryFee)
	return bson.M{
		"$set": bson.M{
			"commission":    commission,
			"driverAmount":  driverAmount,
			"status":        models.EarningPending,
			"paymentMethod": models.PaymentMethodMpesa,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{
			"driverId":    *order.TaxiDriverID,
			"orderId":     order.ID,
			"deliveryFee": order.DeliveryFee,
			"currency":    models.DefaultCurrency,
			"createdAt":   now,
		},
	}
}

// createSettlementEarnings settles the earnings record with the platform's
// 10%/90% commission split. Payout happens later.
func (e *Engine) createSettlementEarnings(ctx context.Context, order *models.Order) error {
	_, err := e.db.Collection("driver_earnings").UpdateOne(ctx,
		bson.M{"driverId": *order.TaxiDriverID, "orderId": order.ID},
		settlementEarningsUpdate(order, time.Now()),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return apperr.Wrap(err, "could not create settlement earnings")
	}
	return nil
}

// Refund moves a completed payment to refunded on both records. It does not
// reverse the order status or restore stock.
func (e *Engine) Refund(ctx context.Context, orderID primitive.ObjectID, reason string) (*models.Payment, error) {
	var payment models.Payment
	err := e.db.Collection("payments").FindOne(ctx, bson.M{"orderId": orderID}).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound, "payment not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "could not load payment record")
	}

	if payment.Status != models.PaymentCompleted {
		return nil, apperr.New(apperr.AlreadyProcessed, "only completed payments can be refunded, current status: %s", payment.Status)
	}

	if reason == "" {
		reason = "Payment refunded"
	}

	now := time.Now()
	_, err = e.db.Collection("payments").UpdateOne(ctx, bson.M{"_id": payment.ID}, bson.M{"$set": bson.M{
		"status":        models.PaymentRefunded,
		"failureReason": reason,
		"updatedAt":     now,
	}})
	if err != nil {
		return nil, apperr.Wrap(err, "could not refund payment")
	}

	_, err = e.db.Collection("orders").UpdateOne(ctx, bson.M{"_id": orderID}, bson.M{"$set": bson.M{
		"payment.status": models.PaymentRefunded,
		"updatedAt":      now,
	}})
	if err != nil {
		return nil, apperr.Wrap(err, "could not update order payment")
	}

	payment.Status = models.PaymentRefunded
	payment.FailureReason = reason

	log.Printf("[PAYMENT] [INFO] payment refunded for order %s: %s", orderID.Hex(), reason)
	return &payment, nil
}

/* =========================
   READS
========================= */

// StatusView pairs the two payment representations for a quick check.
type StatusView struct {
	PaymentStatus      string  `json:"paymentStatus"`
	OrderPaymentStatus string  `json:"orderPaymentStatus"`
	OrderStatus        string  `json:"orderStatus"`
	Amount             float64 `json:"amount"`
	PaymentMethod      string  `json:"paymentMethod"`
	Reference          string  `json:"reference"`
}

// Status returns the paired statuses for an order's payment.
func (e *Engine) Status(ctx context.Context, orderID primitive.ObjectID) (*StatusView, error) {
	order, payment, err := e.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperr.New(apperr.NotFound, "payment not found for this order")
	}
	return &StatusView{
		PaymentStatus:      payment.Status,
		OrderPaymentStatus: order.Payment.Status,
		OrderStatus:        order.Status,
		Amount:             payment.Amount,
		PaymentMethod:      payment.PaymentMethod,
		Reference:          payment.Reference,
	}, nil
}

// Details returns the full ledger record plus the order's statuses.
func (e *Engine) Details(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, *models.Order, error) {
	order, payment, err := e.load(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, apperr.New(apperr.NotFound, "payment not found for this order")
	}
	return payment, order, nil
}

func (e *Engine) load(ctx context.Context, orderID primitive.ObjectID) (*models.Order, *models.Payment, error) {
	var order models.Order
	err := e.db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, nil, apperr.New(apperr.NotFound, "order not found")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "could not load order")
	}

	var payment models.Payment
	err = e.db.Collection("payments").FindOne(ctx, bson.M{"orderId": orderID}).Decode(&payment)
	if err == mongo.ErrNoDocuments {
		return &order, nil, nil
	}
	if err != nil {
		return nil, nil, apperr.Wrap(err, "could not load payment record")
	}
	return &order, &payment, nil
}
