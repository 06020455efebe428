package model

import "github.com/shopspring/decimal"

// ProductOrder is a line item owned by a queue. ProductName and ProductPrice are snapshots
// taken at order time, so history survives product edits and deletion (ProductID becomes nil).
type ProductOrder struct {
	ID           *int64          `json:"id,omitempty" db:"id"`
	QueueID      *int64          `json:"queue_id,omitempty" db:"queue_id"`
	ProductID    *int64          `json:"product_id,omitempty" db:"product_id"`
	ProductName  *string         `json:"product_name,omitempty" db:"product_name"`
	ProductPrice *int64          `json:"product_price,omitempty" db:"product_price"`
	Quantity     float64         `json:"quantity" db:"quantity"`
	Discount     int64           `json:"discount" db:"discount"`
	TotalPrice   decimal.Decimal `json:"total_price" db:"total_price"`
}

// ProductOrderParams holds the inputs of NewProductOrder. TotalPrice overrides the computed
// total when set.
type ProductOrderParams struct {
	ID           *int64
	QueueID      *int64
	ProductID    *int64
	ProductName  *string
	ProductPrice *int64
	Quantity     float64
	Discount     int64
	TotalPrice   *decimal.Decimal
}

// NewProductOrder builds a line item, computing its total price unless explicitly provided.
func NewProductOrder(p ProductOrderParams) ProductOrder {
	po := ProductOrder{
		ID:           p.ID,
		QueueID:      p.QueueID,
		ProductID:    p.ProductID,
		ProductName:  p.ProductName,
		ProductPrice: p.ProductPrice,
		Quantity:     p.Quantity,
		Discount:     p.Discount,
	}
	if p.TotalPrice != nil {
		po.TotalPrice = *p.TotalPrice
	} else {
		po.TotalPrice = po.CalculateTotalPrice()
	}
	return po
}

// NewProductOrderFor snapshots product into a line item.
func NewProductOrderFor(product Product, quantity float64, discount int64) ProductOrder {
	name := product.Name
	price := product.Price
	return NewProductOrder(ProductOrderParams{
		ProductID:    product.ID,
		ProductName:  &name,
		ProductPrice: &price,
		Quantity:     quantity,
		Discount:     discount,
	})
}

// CalculateTotalPrice returns price*quantity - discount, clamped at zero. A missing price
// snapshot yields zero.
func (po ProductOrder) CalculateTotalPrice() decimal.Decimal {
	if po.ProductPrice == nil {
		return decimal.Zero
	}
	total := decimal.NewFromInt(*po.ProductPrice).
		Mul(decimal.NewFromFloat(po.Quantity)).
		Sub(decimal.NewFromInt(po.Discount))
	return decimal.Max(decimal.Zero, total)
}

// DiscountPercent returns the discount as a percentage of the undiscounted total, rounded
// half-up to two places. Zero when the undiscounted total is zero.
func (po ProductOrder) DiscountPercent() decimal.Decimal {
	discount := decimal.NewFromInt(po.Discount)
	withoutDiscount := po.TotalPrice.Add(discount)
	if withoutDiscount.IsZero() {
		return decimal.Zero
	}
	return discount.Mul(decimal.NewFromInt(100)).DivRound(withoutDiscount, 2)
}

// ReferencedProduct rebuilds the product snapshot. It returns nil when either the name or the
// price snapshot is missing.
func (po ProductOrder) ReferencedProduct() *Product {
	if po.ProductName == nil || po.ProductPrice == nil {
		return nil
	}
	return &Product{ID: po.ProductID, Name: *po.ProductName, Price: *po.ProductPrice}
}

// WithQueueID returns a copy bound to the given queue.
func (po ProductOrder) WithQueueID(queueID *int64) ProductOrder {
	if queueID != nil {
		id := *queueID
		queueID = &id
	}
	po.QueueID = queueID
	return po
}
