package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductRatings is the aggregate rating summary kept on each product.
type ProductRatings struct {
	Average float64 `bson:"average" json:"average"`
	Count   int     `bson:"count" json:"count"`
}

// Product is a vendor-owned catalog entry. The orders engine decrements
// StockQuantity at checkout and restores it on cancellation.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VendorID      primitive.ObjectID `bson:"vendorId" json:"vendorId"`
	Name          LocalizedName      `bson:"name" json:"name"`
	Description   LocalizedName      `bson:"description" json:"description"`
	Category      string             `bson:"category" json:"category"`
	Price         float64            `bson:"price" json:"price"`
	Currency      string             `bson:"currency" json:"currency"`
	Available     bool               `bson:"available" json:"available"`
	StockQuantity int                `bson:"stockQuantity" json:"stockQuantity"`
	Priority      int                `bson:"priority" json:"priority"`
	Ratings       ProductRatings     `bson:"ratings" json:"ratings"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// InStock reports whether any units remain.
func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}
