package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lesmarket/internal/delivery"
)

/* =========================
   DRIVER WORK QUEUE
========================= */

func GetAvailableOrders(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/driver/available"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		rows, err := engine.ListAvailable(ctx, actorFromContext(c).ID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"results": len(rows),
			"data":    gin.H{"orders": rows},
		})
	}
}

func GetAssignedOrders(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/driver/assigned"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := engine.ListAssigned(ctx, actorFromContext(c).ID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"results": len(list),
			"data":    gin.H{"orders": list},
		})
	}
}

func GetDriverEarnings(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/driver/earnings"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		earnings, summary, err := engine.Earnings(ctx, actorFromContext(c).ID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data": gin.H{
				"earnings": earnings,
				"summary":  summary,
			},
		})
	}
}

/* =========================
   ACCEPT / REJECT
========================= */

func AcceptOrder(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/driver/:id/accept"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.Accept(ctx, actorFromContext(c).ID, orderID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "delivery assignment accepted successfully",
			"data": gin.H{
				"order":       order,
				"deliveryFee": order.DeliveryFee,
			},
		})
	}
}

type rejectOrderRequest struct {
	Reason string `json:"reason"`
}

func RejectOrder(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/driver/:id/reject"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		var req rejectOrderRequest
		// Body is optional; a bare reject carries no reason.
		_ = c.ShouldBindJSON(&req)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := engine.Reject(ctx, actorFromContext(c).ID, orderID, req.Reason); err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "delivery assignment rejected successfully",
		})
	}
}

/* =========================
   START / COMPLETE
========================= */

func StartDelivery(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/driver/:id/start"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.Start(ctx, actorFromContext(c).ID, orderID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "delivery started successfully",
			"data":    gin.H{"order": order},
		})
	}
}

func CompleteDelivery(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/driver/:id/complete"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.Complete(ctx, actorFromContext(c).ID, orderID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "delivery completed successfully",
			"data": gin.H{
				"order":    order,
				"earnings": order.DeliveryFee,
			},
		})
	}
}
