package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/models"
	"lesmarket/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens via the JWT middleware, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and joins the caller to the rooms that
// match their role. Clients may additionally subscribe to a single order's
// room via ?orderId=.
func ServeWS(hub *notify.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := actorFromContext(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] [ERROR] upgrade failed: %v", err)
			return
		}

		client := notify.NewClient(conn)

		switch actor.Role {
		case models.RoleTaxiDriver:
			hub.Join(notify.DriverRoom(actor.ID.Hex()), client)
			hub.Join(notify.AllDriversRoom, client)
		case models.RoleVendor:
			hub.Join(notify.VendorRoom(actor.ID.Hex()), client)
		case models.RolePassenger:
			hub.Join(notify.PassengerRoom(actor.ID.Hex()), client)
		}

		if raw := c.Query("orderId"); raw != "" {
			if orderID, err := primitive.ObjectIDFromHex(raw); err == nil {
				hub.Join(notify.OrderRoom(orderID.Hex()), client)
			}
		}

		go client.WritePump()
		go client.ReadPump(hub)
	}
}
