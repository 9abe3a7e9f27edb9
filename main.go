package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"lesmarket/internal/config"
	"lesmarket/internal/database"
	"lesmarket/internal/delivery"
	"lesmarket/internal/handlers"
	"lesmarket/internal/middleware"
	"lesmarket/internal/models"
	"lesmarket/internal/notify"
	"lesmarket/internal/orders"
	"lesmarket/internal/payments"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("⚠️ order index warning: %v", err)
	}
	if err := database.EnsurePaymentIndexes(db); err != nil {
		log.Printf("⚠️ payment index warning: %v", err)
	}
	if err := database.EnsureEarningsIndexes(db); err != nil {
		log.Printf("⚠️ earnings index warning: %v", err)
	}
	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("⚠️ product index warning: %v", err)
	}

	hub := notify.NewHub()

	orderEngine := orders.NewEngine(db, hub, orders.Config{
		StandardFee:   config.AppEnv.StandardDeliveryFee,
		UrgentFee:     config.AppEnv.UrgentDeliveryFee,
		EstimateDelay: config.AppEnv.DeliveryEstimateDelay,
	})
	deliveryEngine := delivery.NewEngine(db, hub, delivery.Config{
		StandardFee:   config.AppEnv.StandardDeliveryFee,
		UrgentFee:     config.AppEnv.UrgentDeliveryFee,
		EstimateDelay: config.AppEnv.DeliveryEstimateDelay,
	})
	paymentEngine := payments.NewEngine(db,
		payments.NewMpesaSimulator(config.AppEnv.PaymentSimLatency, config.AppEnv.MpesaSuccessRate),
		payments.NewEcocashSimulator(config.AppEnv.PaymentSimLatency),
	)

	r := gin.Default()

	r.GET("/health", handlers.Health(db))

	auth := middleware.UserAuth(config.AppEnv.JWTSecret)

	api := r.Group("/api/v1")
	api.Use(auth)

	api.GET("/ws", handlers.ServeWS(hub))

	o := api.Group("/orders")
	{
		o.POST("", middleware.RequireRoles(models.RolePassenger), handlers.CreateOrder(orderEngine))
		// Older mobile builds still post to the combined endpoint.
		o.POST("/create-with-payment", middleware.RequireRoles(models.RolePassenger), handlers.CreateOrder(orderEngine))
		o.GET("", middleware.RequireRoles(models.RoleAdmin), handlers.GetAllOrders(orderEngine))
		o.GET("/my-orders", handlers.GetMyOrders(orderEngine))
		o.GET("/stats", middleware.RequireRoles(models.RoleAdmin), handlers.GetOrderStats(orderEngine))

		driver := o.Group("/driver", middleware.RequireRoles(models.RoleTaxiDriver))
		{
			driver.GET("/available", handlers.GetAvailableOrders(deliveryEngine))
			driver.GET("/assigned", handlers.GetAssignedOrders(deliveryEngine))
			driver.GET("/earnings", handlers.GetDriverEarnings(deliveryEngine))
			driver.PATCH("/:id/accept", handlers.AcceptOrder(deliveryEngine))
			driver.PATCH("/:id/reject", handlers.RejectOrder(deliveryEngine))
			driver.PATCH("/:id/start", handlers.StartDelivery(deliveryEngine))
			driver.PATCH("/:id/complete", handlers.CompleteDelivery(deliveryEngine))
		}

		o.GET("/:id", handlers.GetOrder(orderEngine))
		o.PATCH("/:id/status", handlers.UpdateOrderStatus(orderEngine))
		o.PATCH("/:id/assign-driver",
			middleware.RequireRoles(models.RoleVendor, models.RoleAdmin),
			handlers.AssignDriver(deliveryEngine))
		o.PATCH("/:id/rate", middleware.RequireRoles(models.RolePassenger), handlers.RateOrder(orderEngine))
	}

	p := api.Group("/payments")
	{
		p.POST("/mpesa/initiate", middleware.RequireRoles(models.RolePassenger), handlers.InitiateMpesaPayment(paymentEngine))
		p.POST("/ecocash/initiate", middleware.RequireRoles(models.RolePassenger), handlers.InitiateEcocashPayment(paymentEngine))
		p.POST("/confirm", handlers.ConfirmPayment(paymentEngine))
		p.POST("/refund", middleware.RequireRoles(models.RoleAdmin), handlers.RefundPayment(paymentEngine))
		p.GET("/status/:orderId", handlers.GetPaymentStatus(paymentEngine))
		p.GET("/details/:orderId", handlers.GetPaymentDetails(paymentEngine))
	}

	// Gateway callbacks arrive without a user token.
	callbacks := r.Group("/api/v1/payments")
	{
		callbacks.POST("/mpesa/callback", handlers.MpesaCallback())
		callbacks.POST("/ecocash/callback", handlers.EcocashCallback())
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
