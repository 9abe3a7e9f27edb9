package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	orderIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "passengerId", Value: 1}},
			Options: options.Index().SetName("passengerId_index"),
		},
		{
			Keys:    bson.D{{Key: "vendorId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("vendorId_status_index"),
		},
		{
			Keys:    bson.D{{Key: "taxiDriverId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("taxiDriverId_status_index"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "payment.status", Value: 1}},
			Options: options.Index().SetName("status_paymentStatus_index"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc_index"),
		},
	}

	log.Println("EnsureOrderIndexes: creating order indexes")
	_, err := indexes.CreateMany(ctx, orderIndexes)
	if err != nil {
		log.Println("EnsureOrderIndexes: order index error:", err)
		return err
	}
	return nil
}

func EnsurePaymentIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("payments").Indexes()

	orderIDIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "orderId", Value: 1}},
		Options: options.Index().
			SetName("orderId_unique").
			SetUnique(true),
	}

	log.Println("EnsurePaymentIndexes: creating orderId_unique index")
	_, err := indexes.CreateOne(ctx, orderIDIndex)
	if err != nil {
		log.Println("EnsurePaymentIndexes: orderId index error:", err)
		return err
	}
	return nil
}

func EnsureEarningsIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("driver_earnings").Indexes()

	earningsIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "driverId", Value: 1}, {Key: "orderId", Value: 1}},
			Options: options.Index().
				SetName("driverId_orderId_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "driverId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("driverId_status_index"),
		},
	}

	log.Println("EnsureEarningsIndexes: creating earnings indexes")
	_, err := indexes.CreateMany(ctx, earningsIndexes)
	if err != nil {
		log.Println("EnsureEarningsIndexes: earnings index error:", err)
		return err
	}
	return nil
}

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	vendorIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "vendorId", Value: 1}, {Key: "available", Value: 1}},
		Options: options.Index().SetName("vendorId_available_index"),
	}

	log.Println("EnsureProductIndexes: creating vendorId_available_index")
	_, err := indexes.CreateOne(ctx, vendorIndex)
	if err != nil {
		log.Println("EnsureProductIndexes: vendor index error:", err)
		return err
	}
	return nil
}
