package accounts

import "github.com/shopspring/decimal"

type CreateAccountRequest struct {
	ClientID       int64           `json:"client_id" validate:"required,gt=0"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
}

// UpdateAccountRequest drives the reconciliation: setting TotalRemaining
// rewrites the client's bill payments to match it. TotalCredit is stored
// as given.
type UpdateAccountRequest struct {
	TotalRemaining *decimal.Decimal `json:"total_remaining,omitempty"`
	TotalCredit    *decimal.Decimal `json:"total_credit,omitempty"`
}
