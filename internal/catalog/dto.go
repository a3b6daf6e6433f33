package catalog

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	Name              string          `json:"name" validate:"required,min=2,max=200"`
	Description       *string         `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price             decimal.Decimal `json:"price" validate:"required"`
	QuantityInStock   int             `json:"quantity_in_stock" validate:"gte=0"`
	MinimumStockLevel int             `json:"minimum_stock_level" validate:"gte=0"`
	ImageURLs         []string        `json:"image_urls" validate:"max=5"`
	CategoryID        int64           `json:"category_id" validate:"required,gt=0"`
	Barcode           *string         `json:"barcode,omitempty"`
	Variants          *Variant        `json:"variants,omitempty"`
	IsActive          *bool           `json:"is_active,omitempty"`
}

type UpdateProductRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description       *string          `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price             *decimal.Decimal `json:"price,omitempty"`
	QuantityInStock   *int             `json:"quantity_in_stock,omitempty" validate:"omitempty,gte=0"`
	MinimumStockLevel *int             `json:"minimum_stock_level,omitempty" validate:"omitempty,gte=0"`
	ImageURLs         *[]string        `json:"image_urls,omitempty" validate:"omitempty,max=5"`
	CategoryID        *int64           `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Barcode           *string          `json:"barcode,omitempty"`
	ClearBarcode      bool             `json:"clear_barcode,omitempty"`
	Variants          *Variant         `json:"variants,omitempty"`
	ClearVariants     bool             `json:"clear_variants,omitempty"`
	IsActive          *bool            `json:"is_active,omitempty"`
}

type SetStockRequest struct {
	QuantityInStock int `json:"quantity_in_stock" validate:"gte=0"`
}

// ListFilters narrows product listings.
type ListFilters struct {
	CategoryID *int64
	Search     string
	IsActive   *bool
	Page       int
	Limit      int
}
