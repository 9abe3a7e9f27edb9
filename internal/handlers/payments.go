package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
	"lesmarket/internal/payments"
)

type paymentInitiateRequest struct {
	OrderID     string `json:"orderId" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

func initiatePayment(engine *payments.Engine, method, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		var req paymentInitiateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		orderID, err := primitive.ObjectIDFromHex(req.OrderID)
		if err != nil {
			respondAppError(c, route, apperr.New(apperr.Validation, "invalid order id"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := engine.Initiate(ctx, actorFromContext(c).ID, orderID, req.PhoneNumber, method)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": result.ProviderMessage,
			"data": gin.H{
				"transactionId": result.TransactionID,
				"reference":     result.Payment.Reference,
				"order":         result.Order,
				"payment":       result.Payment,
			},
		})
	}
}

func InitiateMpesaPayment(engine *payments.Engine) gin.HandlerFunc {
	return initiatePayment(engine, models.PaymentMethodMpesa, "POST /payments/mpesa/initiate")
}

func InitiateEcocashPayment(engine *payments.Engine) gin.HandlerFunc {
	return initiatePayment(engine, models.PaymentMethodEcocash, "POST /payments/ecocash/initiate")
}

func ConfirmPayment(engine *payments.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/confirm"
		defer handlePanic(c, route)

		var req payments.ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		orderID, err := primitive.ObjectIDFromHex(req.OrderID)
		if err != nil {
			respondAppError(c, route, apperr.New(apperr.Validation, "invalid order id"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		result, err := engine.Confirm(ctx, orderID, req.Status, req.TransactionID, req.FailureReason)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Payment " + req.Status,
			"data": gin.H{
				"order":   result.Order,
				"payment": result.Payment,
			},
		})
	}
}

type refundRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Reason  string `json:"reason"`
}

func RefundPayment(engine *payments.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/refund"
		defer handlePanic(c, route)

		var req refundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		orderID, err := primitive.ObjectIDFromHex(req.OrderID)
		if err != nil {
			respondAppError(c, route, apperr.New(apperr.Validation, "invalid order id"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		payment, err := engine.Refund(ctx, orderID, req.Reason)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Payment refunded successfully",
			"data":    gin.H{"payment": payment},
		})
	}
}

func GetPaymentStatus(engine *payments.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /payments/status/:orderId"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
		if err != nil {
			respondAppError(c, route, apperr.New(apperr.Validation, "invalid order id"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		view, err := engine.Status(ctx, orderID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   view,
		})
	}
}

func GetPaymentDetails(engine *payments.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /payments/details/:orderId"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("orderId"))
		if err != nil {
			respondAppError(c, route, apperr.New(apperr.Validation, "invalid order id"))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		payment, order, err := engine.Details(ctx, orderID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data": gin.H{
				"payment": payment,
				"order":   order,
			},
		})
	}
}

// Provider callbacks are acknowledged but not acted on; reconciliation
// happens through /payments/confirm.
func providerCallback(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Callback received",
		})
	}
}

func MpesaCallback() gin.HandlerFunc {
	return providerCallback("POST /payments/mpesa/callback")
}

func EcocashCallback() gin.HandlerFunc {
	return providerCallback("POST /payments/ecocash/callback")
}
