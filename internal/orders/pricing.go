package orders

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"lesmarket/internal/apperr"
	"lesmarket/internal/models"
)

// orderPricing accumulates price-snapshotted line items for a single vendor.
// The total is Σ(price × quantity) over the items plus the delivery fee.
type orderPricing struct {
	vendorID primitive.ObjectID
	items    []models.OrderItem
	subtotal float64
}

// add snapshots one product at its current price. Every item must come from
// the vendor claimed by the first one.
func (p *orderPricing) add(product *models.Product, quantity int) error {
	if !product.Available || product.StockQuantity < quantity {
		return apperr.New(apperr.Validation,
			"product %s is not available in the requested quantity", product.Name.En)
	}

	if p.vendorID.IsZero() {
		p.vendorID = product.VendorID
	} else if p.vendorID != product.VendorID {
		return apperr.New(apperr.Validation, "all items must be from the same vendor")
	}

	p.items = append(p.items, models.OrderItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
	})
	p.subtotal += product.Price * float64(quantity)
	return nil
}

func (p *orderPricing) totalWithFee(fee float64) float64 {
	return p.subtotal + fee
}
