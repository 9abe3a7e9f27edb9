package delivery

import (
	"math"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/models"
)

const earthRadiusKm = 6371.0

// Distance returns the haversine distance between two points in kilometres,
// rounded to one decimal.
func Distance(from, to models.Coordinates) float64 {
	lat1 := from.Latitude * math.Pi / 180.0
	lat2 := to.Latitude * math.Pi / 180.0
	dLat := (to.Latitude - from.Latitude) * math.Pi / 180.0
	dLon := (to.Longitude - from.Longitude) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusKm*c*10) / 10
}

// OrderNumber derives the short human-facing reference from an order id.
func OrderNumber(orderID primitive.ObjectID) string {
	hex := orderID.Hex()
	return "ORDER-" + strings.ToUpper(hex[len(hex)-6:])
}

// fallback returns primary unless it is empty.
func fallback(primary, secondary string) string {
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return secondary
}
