// Package billing implements the bill engine: creating bills from line items
// against live stock, applying payments, and keeping the money aggregates
// consistent. Every committed bill satisfies
// total_amount == total_paid + total_remaining.
package billing

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the payment state of a bill.
type Status string

const (
	StatusNotPaid       Status = "not paid"
	StatusPartiallyPaid Status = "partially paid"
	StatusPaid          Status = "paid"
)

// StatusFor derives the bill status from its money aggregates. Every mutation
// path goes through this one function so the status can never drift from the
// totals.
func StatusFor(totalPaid, totalRemaining decimal.Decimal) Status {
	switch {
	case totalRemaining.IsZero():
		return StatusPaid
	case totalPaid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusNotPaid
	}
}

// DeliveryStatus is the logistics state of a bill, independent of payment.
type DeliveryStatus string

const (
	DeliveryNotDelivered DeliveryStatus = "not_delivered"
	DeliveryDelivered    DeliveryStatus = "delivered"
	DeliveryCancelled    DeliveryStatus = "cancelled"
)

// deliveryTransitions is the closed transition table. Cancellation never
// touches the money fields; financial corrections go through payments.
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryNotDelivered: {DeliveryDelivered, DeliveryCancelled},
	DeliveryDelivered:    {DeliveryCancelled},
}

// CanTransitionTo reports whether the delivery status may move to the target.
func (s DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Valid reports whether the value is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryNotDelivered, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

// OutsideBillPrefix marks synthetic bills created by account reconciliation
// for purchases made outside the system. Reconciliation excludes these from
// the tracked total and regenerates them as needed.
const OutsideBillPrefix = "OUTSIDE-"

// Bill is an invoice for one client order.
type Bill struct {
	ID             int64           `json:"id"`
	ClientID       int64           `json:"client_id"`
	BillNumber     string          `json:"bill_number"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	Status         Status          `json:"status"`
	DeliveryStatus DeliveryStatus  `json:"delivery_status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	Items          []BillItem      `json:"items,omitempty"`
}

// IsOutside reports whether the bill is a synthetic outside-purchase bill.
func (b *Bill) IsOutside() bool {
	return strings.HasPrefix(b.BillNumber, OutsideBillPrefix)
}

// SetTotalPaid rewrites the paid amount, keeping remaining and status in sync.
func (b *Bill) SetTotalPaid(totalPaid decimal.Decimal) {
	b.TotalPaid = totalPaid
	b.TotalRemaining = b.TotalAmount.Sub(totalPaid)
	b.Status = StatusFor(b.TotalPaid, b.TotalRemaining)
}

// BillItem is a snapshot of one product purchase at sale time. The product
// reference may later become nil if the product is deleted; the snapshot stays.
type BillItem struct {
	ID               int64             `json:"id"`
	BillID           int64             `json:"bill_id"`
	ProductID        *int64            `json:"product_id,omitempty"`
	ProductName      string            `json:"product_name"`
	UnitPrice        decimal.Decimal   `json:"unit_price"`
	Quantity         int               `json:"quantity"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	SelectedVariants map[string]string `json:"selected_variants,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// snapshotName inlines the variant selection into the product name, e.g.
// "T-Shirt (size: M)". Keys are sorted so the snapshot is deterministic.
func snapshotName(productName string, selected map[string]string) string {
	if len(selected) == 0 {
		return productName
	}
	keys := make([]string, 0, len(selected))
	for k := range selected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+selected[k])
	}
	return productName + " (" + strings.Join(parts, ", ") + ")"
}

// BillWithClient is the admin view of a bill enriched with client contact data.
type BillWithClient struct {
	Bill
	ClientName  string  `json:"client_name"`
	ClientEmail string  `json:"client_email"`
	ClientPhone *string `json:"client_phone,omitempty"`
}
