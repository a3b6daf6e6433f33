// Package catalog manages the product ledger: prices, stock quantities,
// thresholds, barcodes and variant schemas.
package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comptoir/comptoir/internal/stock"
)

// Variant describes the option axis a product can be sold in, e.g.
// type "size" with options ["S","M","L"]. Stored as a jsonb sidecar.
type Variant struct {
	Type    string   `json:"type"`
	Options []string `json:"options"`
}

// HasOption reports whether the variant schema allows the given option.
func (v *Variant) HasOption(option string) bool {
	if v == nil {
		return false
	}
	for _, o := range v.Options {
		if strings.EqualFold(o, option) {
			return true
		}
	}
	return false
}

// Product is one sellable item. QuantityInStock is only mutated by sales
// (decrement inside the bill transaction) or an explicit admin stock set.
type Product struct {
	ID                int64           `json:"id"`
	CategoryID        int64           `json:"category_id"`
	AdminID           int64           `json:"admin_id"`
	Name              string          `json:"name"`
	Description       *string         `json:"description,omitempty"`
	Price             decimal.Decimal `json:"price"`
	QuantityInStock   int             `json:"quantity_in_stock"`
	MinimumStockLevel int             `json:"minimum_stock_level"`
	ImageURLs         []string        `json:"image_urls"`
	Barcode           *string         `json:"barcode,omitempty"`
	Variants          *Variant        `json:"variants,omitempty"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
}

// StockState maps the product onto the alert engine's snapshot.
func (p Product) StockState() stock.ProductState {
	return stock.ProductState{
		ID:                p.ID,
		Name:              p.Name,
		QuantityInStock:   p.QuantityInStock,
		MinimumStockLevel: p.MinimumStockLevel,
	}
}
