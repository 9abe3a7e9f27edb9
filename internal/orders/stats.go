package orders

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
)

// DailyStat is one day's order volume and revenue.
type DailyStat struct {
	Date          string  `bson:"_id" json:"date"`
	Count         int     `bson:"count" json:"count"`
	TotalRevenue  float64 `bson:"totalRevenue" json:"totalRevenue"`
	AvgOrderValue float64 `bson:"avgOrderValue" json:"avgOrderValue"`
}

// StatusStat counts orders per status.
type StatusStat struct {
	Status string `bson:"_id" json:"status"`
	Count  int    `bson:"count" json:"count"`
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	DailyStats   []DailyStat  `json:"dailyStats"`
	StatusStats  []StatusStat `json:"statusStats"`
	TotalOrders  int64        `json:"totalOrders"`
	RevenueToday float64      `json:"revenueToday"`
}

// Stats aggregates the last 30 days of orders plus today's completed revenue.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	coll := e.db.Collection("orders")

	since := time.Now().AddDate(0, 0, -30)
	dailyPipeline := []bson.M{
		{"$match": bson.M{"createdAt": bson.M{"$gte": since}}},
		{"$group": bson.M{
			"_id":           bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
			"count":         bson.M{"$sum": 1},
			"totalRevenue":  bson.M{"$sum": "$totalAmount"},
			"avgOrderValue": bson.M{"$avg": "$totalAmount"},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	cursor, err := coll.Aggregate(ctx, dailyPipeline)
	if err != nil {
		return nil, apperr.Wrap(err, "could not aggregate daily stats")
	}
	var daily []DailyStat
	if err := cursor.All(ctx, &daily); err != nil {
		return nil, apperr.Wrap(err, "could not parse daily stats")
	}

	statusPipeline := []bson.M{
		{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	cursor, err = coll.Aggregate(ctx, statusPipeline)
	if err != nil {
		return nil, apperr.Wrap(err, "could not aggregate status stats")
	}
	var byStatus []StatusStat
	if err := cursor.All(ctx, &byStatus); err != nil {
		return nil, apperr.Wrap(err, "could not parse status stats")
	}

	total, err := coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, apperr.Wrap(err, "could not count orders")
	}

	midnight := time.Now().Truncate(24 * time.Hour)
	todayPipeline := []bson.M{
		{"$match": bson.M{
			"createdAt": bson.M{"$gte": midnight},
			"status":    models.OrderCompleted,
		}},
		{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$totalAmount"}}},
	}
	cursor, err = coll.Aggregate(ctx, todayPipeline)
	if err != nil {
		return nil, apperr.Wrap(err, "could not aggregate revenue")
	}
	var todayRows []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &todayRows); err != nil {
		return nil, apperr.Wrap(err, "could not parse revenue")
	}

	stats := &Stats{
		DailyStats:  daily,
		StatusStats: byStatus,
		TotalOrders: total,
	}
	if len(todayRows) > 0 {
		stats.RevenueToday = todayRows[0].Total
	}
	return stats, nil
}
