package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/delivery"
	"lesmarket/internal/orders"
)

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		var req orders.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		actor := actorFromContext(c)

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.Create(ctx, actor.ID, req)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"status": "success",
			"data":   gin.H{"order": order},
		})
	}
}

/* =========================
   STATUS TRANSITIONS
========================= */

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func UpdateOrderStatus(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id/status"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.UpdateStatus(ctx, actorFromContext(c), orderID, req.Status)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"order": order},
		})
	}
}

/* =========================
   READS
========================= */

func GetOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.Get(ctx, actorFromContext(c), orderID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"order": order},
		})
	}
}

func GetAllOrders(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := engine.ListAll(ctx)
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

func GetMyOrders(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/my-orders"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		list, err := engine.ListForActor(ctx, actorFromContext(c))
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

func GetOrderStats(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/stats"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		stats, err := engine.Stats(ctx)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   stats,
		})
	}
}

/* =========================
   MANUAL DRIVER ASSIGNMENT
========================= */

type assignDriverRequest struct {
	DriverID string `json:"driverId" binding:"required"`
}

// AssignDriver lets the order's vendor or an admin hand the delivery to a
// specific driver; it converges on the same assignment path drivers use.
func AssignDriver(engine *delivery.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id/assign-driver"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		var req assignDriverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		driverID, err := primitive.ObjectIDFromHex(req.DriverID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid driver id"})
			return
		}

		actor := actorFromContext(c)

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.Assign(ctx, actor.ID, actor.Role, orderID, driverID)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"order": order},
		})
	}
}

/* =========================
   RATINGS
========================= */

func RateOrder(engine *orders.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id/rate"
		defer handlePanic(c, route)

		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}

		var req orders.RateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		order, err := engine.Rate(ctx, actorFromContext(c).ID, orderID, req)
		if err != nil {
			respondAppError(c, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "success",
			"data":   gin.H{"order": order},
		})
	}
}
