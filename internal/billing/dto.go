package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateBillRequest struct {
	Items []LineItemRequest `json:"items" validate:"required,min=1,dive"`
}

type LineItemRequest struct {
	ProductID        int64             `json:"product_id" validate:"required,gt=0"`
	Quantity         int               `json:"quantity" validate:"required,gt=0"`
	SelectedVariants map[string]string `json:"selected_variants,omitempty"`
}

type PayBillRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type CorrectTotalPaidRequest struct {
	TotalPaid decimal.Decimal `json:"total_paid"`
}

type DeliveryStatusRequest struct {
	DeliveryStatus DeliveryStatus `json:"delivery_status" validate:"required"`
}

// ListBillsRequest narrows the admin bill listing.
type ListBillsRequest struct {
	ClientID *int64
	Status   *Status
	Page     int
	Limit    int
}

// Summary aggregates the whole bill ledger.
type Summary struct {
	TotalBills   int             `json:"total_bills"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
	PaidBills    int             `json:"paid_bills"`
	UnpaidBills  int             `json:"unpaid_bills"`
}

// StatisticsRequest selects a period grouping for bill statistics.
type StatisticsRequest struct {
	GroupBy string // day, month or year
	Year    *int
	Month   *int
	From    *time.Time
	To      *time.Time
}

// PeriodSummary is one statistics bucket.
type PeriodSummary struct {
	Period       string          `json:"period"`
	TotalBills   int             `json:"total_bills"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalPending decimal.Decimal `json:"total_pending"`
	PaidBills    int             `json:"paid_bills"`
	UnpaidBills  int             `json:"unpaid_bills"`
}
