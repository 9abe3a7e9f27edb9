package delivery

import "lesmarket/internal/models"

// EarningsSummary totals a driver's ledger by status.
type EarningsSummary struct {
	TotalEarnings             float64 `json:"totalEarnings"`
	PendingEarnings           float64 `json:"pendingEarnings"`
	TotalDeliveries           int     `json:"totalDeliveries"`
	PendingDeliveries         int     `json:"pendingDeliveries"`
	AverageEarningPerDelivery float64 `json:"averageEarningPerDelivery"`
}

// Summarize folds earnings records into the driver dashboard summary.
// Completed records count toward totals, assigned records toward pending.
func Summarize(earnings []models.DriverEarnings) EarningsSummary {
	var s EarningsSummary
	for _, e := range earnings {
		switch e.Status {
		case models.EarningCompleted:
			s.TotalEarnings += e.DeliveryFee
			s.TotalDeliveries++
		case models.EarningAssigned:
			s.PendingEarnings += e.DeliveryFee
			s.PendingDeliveries++
		}
	}
	if s.TotalDeliveries > 0 {
		s.AverageEarningPerDelivery = s.TotalEarnings / float64(s.TotalDeliveries)
	}
	return s
}
