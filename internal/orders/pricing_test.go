package orders

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
)

func pricedProduct(vendorID primitive.ObjectID, name string, price float64, stock int) *models.Product {
	return &models.Product{
		ID:            primitive.NewObjectID(),
		VendorID:      vendorID,
		Name:          models.LocalizedName{En: name},
		Price:         price,
		Available:     true,
		StockQuantity: stock,
	}
}

func TestOrderPricingTotalsItemsPlusFee(t *testing.T) {
	vendorID := primitive.NewObjectID()
	product := pricedProduct(vendorID, "Papa le nama", 50, 10)

	var pricing orderPricing
	if err := pricing.add(product, 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := pricing.totalWithFee(15); got != 115 {
		t.Fatalf("expected total 115 for 2x50 plus fee 15, got %v", got)
	}
	if len(pricing.items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(pricing.items))
	}
	item := pricing.items[0]
	if item.ProductID != product.ID || item.Quantity != 2 || item.Price != 50 {
		t.Fatalf("unexpected snapshot: %+v", item)
	}
	if item.ProductName.En != "Papa le nama" {
		t.Fatalf("expected snapshotted name, got %q", item.ProductName.En)
	}
	if pricing.vendorID != vendorID {
		t.Fatalf("expected vendor claim %s, got %s", vendorID.Hex(), pricing.vendorID.Hex())
	}
}

func TestOrderPricingAccumulatesAcrossItems(t *testing.T) {
	vendorID := primitive.NewObjectID()

	var pricing orderPricing
	if err := pricing.add(pricedProduct(vendorID, "Moroho", 20, 5), 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := pricing.add(pricedProduct(vendorID, "Likhobe", 35, 5), 2); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := pricing.totalWithFee(25); got != 115 {
		t.Fatalf("expected total 115 for 20+2x35 plus fee 25, got %v", got)
	}
}

func TestOrderPricingRejectsMixedVendors(t *testing.T) {
	var pricing orderPricing
	if err := pricing.add(pricedProduct(primitive.NewObjectID(), "Moroho", 20, 5), 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	err := pricing.add(pricedProduct(primitive.NewObjectID(), "Likhobe", 35, 5), 1)
	if err == nil {
		t.Fatal("expected mixed-vendor order to be rejected")
	}
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOrderPricingRejectsInsufficientStock(t *testing.T) {
	product := pricedProduct(primitive.NewObjectID(), "Moroho", 20, 1)

	var pricing orderPricing
	err := pricing.add(product, 2)
	if err == nil {
		t.Fatal("expected over-stock quantity to be rejected")
	}
	if !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if pricing.subtotal != 0 || len(pricing.items) != 0 {
		t.Fatalf("rejected item must not accumulate, got %+v", pricing)
	}
}

func TestOrderPricingRejectsUnavailableProduct(t *testing.T) {
	product := pricedProduct(primitive.NewObjectID(), "Moroho", 20, 5)
	product.Available = false

	var pricing orderPricing
	if err := pricing.add(product, 1); !apperr.IsKind(err, apperr.Validation) {
		t.Fatalf("expected validation error for unavailable product, got %v", err)
	}
}
