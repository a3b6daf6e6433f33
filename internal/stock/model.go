// Package stock derives low-stock and out-of-stock alerts from product
// quantity transitions. At most one unresolved alert exists per product.
package stock

import "time"

// AlertType is the severity of a stock alert.
type AlertType string

const (
	AlertLowStock   AlertType = "low_stock"
	AlertOutOfStock AlertType = "out_of_stock"
)

// Alert flags a product whose quantity crossed a threshold.
type Alert struct {
	ID         int64      `json:"id"`
	ProductID  int64      `json:"product_id"`
	AlertType  AlertType  `json:"alert_type"`
	Message    string     `json:"message"`
	IsResolved bool       `json:"is_resolved"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ProductState is the snapshot the engine needs to classify a product.
type ProductState struct {
	ID                int64
	Name              string
	QuantityInStock   int
	MinimumStockLevel int
}

// severity classifies the product's current stock level. The empty string
// means the stock is healthy. A zero minimum level never yields low_stock.
func (p ProductState) severity() AlertType {
	switch {
	case p.QuantityInStock <= 0:
		return AlertOutOfStock
	case p.MinimumStockLevel > 0 && p.QuantityInStock <= p.MinimumStockLevel:
		return AlertLowStock
	default:
		return ""
	}
}
